package entity

// Product is the subset of the catalog document the negotiation subsystem reads.
// Catalog management lives elsewhere.
type Product struct {
	ID        string  `json:"id" firestore:"id"`
	FarmerID  string  `json:"farmer_id" firestore:"farmerId"`
	Title     string  `json:"title" firestore:"title"`
	Price     float64 `json:"price" firestore:"price"`
	Available bool    `json:"available" firestore:"available"`
}
