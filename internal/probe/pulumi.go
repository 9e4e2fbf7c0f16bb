package probe

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pulumi/pulumi/sdk/v3/go/auto"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/registry"
)

// AddressOutputSuffix marks stack outputs holding contract addresses, e.g. Pool_address.
const AddressOutputSuffix = "_address"

// PulumiStack reads contract addresses from the outputs of a deployed pulumi stack.
// Outputs are fetched once, on the first lookup.
type PulumiStack struct {
	stackName string
	workDir   string
	outputs   func(ctx context.Context) (auto.OutputMap, error)

	mu      sync.Mutex
	handles map[registry.Name]registry.Handle
}

// NewPulumiStack creates a probe over the stack in the pulumi project at workDir.
func NewPulumiStack(stackName, workDir string) *PulumiStack {
	p := &PulumiStack{stackName: stackName, workDir: workDir}
	p.outputs = p.stackOutputs
	return p
}

// Lookup returns the address exported for name.
func (p *PulumiStack) Lookup(ctx context.Context, name registry.Name) (registry.Handle, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handles == nil {
		outputs, err := p.outputs(ctx)
		if err != nil {
			return "", false, err
		}
		p.handles = HandlesFromOutputs(outputs)
	}
	h, ok := p.handles[name]
	return h, ok, nil
}

func (p *PulumiStack) String() string {
	return "pulumi:" + p.stackName
}

func (p *PulumiStack) stackOutputs(ctx context.Context) (auto.OutputMap, error) {
	opts := []auto.LocalWorkspaceOption{auto.WorkDir(p.workDir)}
	if token := os.Getenv("PULUMI_ACCESS_TOKEN"); token != "" {
		opts = append(opts, auto.EnvVars(map[string]string{"PULUMI_ACCESS_TOKEN": token}))
	}

	ws, err := auto.NewLocalWorkspace(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	stack, err := auto.SelectStack(ctx, p.stackName, ws)
	if err != nil {
		return nil, fmt.Errorf("failed to select stack %s: %w", p.stackName, err)
	}
	outputs, err := stack.Outputs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stack outputs: %w", err)
	}
	return outputs, nil
}

// HandlesFromOutputs keeps the string outputs of a stack, keyed by contract name.
// An output named exactly like a contract wins over its suffixed form.
func HandlesFromOutputs(outputs auto.OutputMap) map[registry.Name]registry.Handle {
	handles := make(map[registry.Name]registry.Handle, len(outputs))
	for key, out := range outputs {
		addr, ok := out.Value.(string)
		if !ok || addr == "" {
			continue
		}
		if name := strings.TrimSuffix(key, AddressOutputSuffix); name != key && name != "" {
			if _, exact := outputs[name]; !exact {
				handles[registry.Name(name)] = registry.Handle(addr)
			}
			continue
		}
		handles[registry.Name(key)] = registry.Handle(addr)
	}
	return handles
}
