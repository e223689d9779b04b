package metadata

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	/** @brief Binary resource type. */
	ResourceTypeBinary ResourceType = iota
	/** @brief Image resource type. Data is *ImageData. */
	ResourceTypeImage
	/** @brief Mesh resource type. Data is *MeshData. */
	ResourceTypeMesh
	/** @brief Compiled shader resource type. Data is []uint32. */
	ResourceTypeShader
	/** @brief Material resource type. Data is *MaterialConfig. */
	ResourceTypeMaterial
	ResourceTypeNone
)

/**
 * @brief A generic structure for a loaded asset. All asset loaders load data
 * into these.
 */
type Resource struct {
	Type ResourceType
	/** @brief The name of the resource. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief The resource data. */
	Data interface{}
}
