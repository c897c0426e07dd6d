package native

import (
	_ "embed"
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"
)

//go:embed shaders/overlay.wgsl
var overlayShaderSource string

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// CompileShaderSPIRV compiles WGSL source to SPIR-V words with naga.
func CompileShaderSPIRV(wgsl string) ([]uint32, error) {
	raw, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("native: compile shader: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("native: compile shader: SPIR-V length %d is not a multiple of 4", len(raw))
	}
	words := make([]uint32, len(raw)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	if len(words) == 0 || words[0] != spirvMagic {
		return nil, fmt.Errorf("native: compile shader: output is not SPIR-V")
	}
	return words, nil
}
