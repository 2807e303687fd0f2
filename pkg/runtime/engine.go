//go:generate mockgen -source engine.go -destination ./mock_engine.go -package runtime Engine

package runtime

import (
	"context"

	"github.com/beastbyte/phonnx/pkg/tensor"
)

// NodeInfo describes one declared graph input. Type is the engine's element type name,
// e.g. "tensor(float)".
type NodeInfo struct {
	Name string
	Type string
}

// Engine executes a computation graph. Inputs and Outputs report the declared nodes in
// graph order.
type Engine interface {
	Inputs() []NodeInfo
	Outputs() []string
	Run(ctx context.Context, outputNames []string, inputs map[string]*tensor.Tensor) ([]*tensor.Tensor, error)
}
