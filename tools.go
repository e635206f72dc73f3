//go:build tools

package tools

// Tools invoked through `go generate` are tracked here so go.mod pins them.
import (
	_ "go.uber.org/mock/mockgen"
)
