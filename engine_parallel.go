package surveyor

import (
	"context"
	"sync"
)

// runConcurrent runs the source and schema scanners as two independent
// tasks. Each owns its accumulator; results are joined after both finish.
func (e *Engine) runConcurrent(ctx context.Context, toolFiles, sqlFiles []string) (
	tools []ToolDescriptor, toolWarnings []Warning,
	resources []ResourceDescriptor, sqlWarnings []Warning,
) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		tools, toolWarnings = e.scanSources(ctx, toolFiles)
	}()
	go func() {
		defer wg.Done()
		resources, sqlWarnings = e.scanSchemas(ctx, sqlFiles)
	}()
	wg.Wait()
	return tools, toolWarnings, resources, sqlWarnings
}
