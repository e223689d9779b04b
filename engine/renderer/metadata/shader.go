package metadata

type CullMode uint8

const (
	CullModeBack CullMode = iota
	CullModeNone
	CullModeFront
)

type CompareFunc uint8

const (
	CompareLess CompareFunc = iota
	CompareLessEqual
	CompareAlways
)

/**
 * @brief Describes a graphics pipeline. Shader paths point to SPIR-V produced
 * by the shader build step.
 */
type PipelineDesc struct {
	Name           string
	VertexShader   string
	FragmentShader string
	CullMode       CullMode
	DepthFunc      CompareFunc
	Samples        uint32
	ColourFormat   TextureFormat
	DepthFormat    TextureFormat
}
