// pre_processor.go implements the WGSL include pre-processor. A line of the form
//
//	// @keel:include <name>
//
// is replaced by the registered chunk of that name. Chunks may include other chunks; each chunk is emitted
// at most once per processed source, so shared declarations can be included from several chunks safely.
package shader

import (
	"fmt"
	"strings"
)

const includeDirective = "// @keel:include "

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// chunks maps include names to WGSL source.
	chunks map[string]string
}

// PreProcessor expands include directives in WGSL source.
type PreProcessor interface {
	// Register adds or replaces a named chunk.
	//
	// Parameters:
	//   - name: the include name
	//   - source: the WGSL source of the chunk
	Register(name, source string)

	// Process expands every include directive in source.
	//
	// Parameters:
	//   - source: the WGSL source
	//
	// Returns:
	//   - string: the expanded source
	//   - error: an error for an unknown chunk name or an include cycle
	Process(source string) (string, error)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a pre-processor with the given chunks registered.
//
// Parameters:
//   - chunks: include names mapped to WGSL source, may be nil
//
// Returns:
//   - PreProcessor: the pre-processor
func NewPreProcessor(chunks map[string]string) PreProcessor {
	p := &preProcessor{chunks: make(map[string]string, len(chunks))}
	for name, src := range chunks {
		p.chunks[name] = src
	}
	return p
}

func (p *preProcessor) Register(name, source string) {
	p.chunks[name] = source
}

func (p *preProcessor) Process(source string) (string, error) {
	var out []string
	if err := p.expand(source, "", map[string]bool{}, map[string]bool{}, &out); err != nil {
		return "", err
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) expand(source, from string, emitted, active map[string]bool, out *[]string) error {
	for i, line := range strings.Split(source, "\n") {
		name, ok := strings.CutPrefix(strings.TrimSpace(line), includeDirective)
		if !ok {
			*out = append(*out, line)
			continue
		}
		name = strings.TrimSpace(name)

		where := fmt.Sprintf("line %d", i+1)
		if from != "" {
			where = fmt.Sprintf("%s line %d", from, i+1)
		}
		chunk, known := p.chunks[name]
		if !known {
			return fmt.Errorf("%s: unknown include %q", where, name)
		}
		if active[name] {
			return fmt.Errorf("%s: include cycle through %q", where, name)
		}
		if emitted[name] {
			continue
		}
		active[name] = true
		if err := p.expand(chunk, name, emitted, active, out); err != nil {
			return err
		}
		delete(active, name)
		emitted[name] = true
	}
	return nil
}
