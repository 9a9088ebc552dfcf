package vkres

import (
	"encoding/binary"
	"os"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Shader is a compiled shader module a pipeline can be built from.
type Shader interface {
	VKShaderModule() vk.ShaderModule
}

type ShaderModule struct {
	Handle
	module vk.ShaderModule
}

// CreateShaderModule creates a shader module from SPIR-V bytecode. The length of
// spirv must be a non-zero multiple of four.
func (c *Context) CreateShaderModule(spirv []byte) (*ShaderModule, error) {
	h, err := newHandle(c, "shader module")
	if err != nil {
		return nil, err
	}
	if len(spirv) == 0 || len(spirv)%4 != 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "shader module: %d bytes is not whole SPIR-V words", len(spirv))
	}

	module, err := c.driver.CreateShaderModule(&vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(spirv)),
		PCode:    sliceUint32(spirv),
	})
	if err != nil {
		return nil, errors.Wrap(err, "shader module: create")
	}

	var ret ShaderModule
	ret.Handle = h
	ret.module = module
	return &ret, nil
}

// LoadShaderModule reads a SPIR-V file and creates a shader module from it.
func LoadShaderModule(c *Context, file string) (*ShaderModule, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "shader module: read %s", file)
	}
	return c.CreateShaderModule(data)
}

func (s *ShaderModule) VKShaderModule() vk.ShaderModule {
	return s.module
}

func (s *ShaderModule) Destroy() {
	c, ok := s.release()
	if !ok {
		return
	}
	c.driver.DestroyShaderModule(s.module)
}

// VKPipelineShaderStageCreateInfo describes shader as the given stage entered at
// entryPoint.
func VKPipelineShaderStageCreateInfo(shader Shader, stage vk.ShaderStageFlagBits, entryPoint string) vk.PipelineShaderStageCreateInfo {
	var shaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{}
	shaderStageCreateInfo.SType = vk.StructureTypePipelineShaderStageCreateInfo
	shaderStageCreateInfo.Stage = stage
	shaderStageCreateInfo.Module = shader.VKShaderModule()
	shaderStageCreateInfo.PName = safeString(entryPoint)
	return shaderStageCreateInfo
}

func sliceUint32(data []byte) []uint32 {
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words
}
