package assets

import "github.com/spaghettifunk/creep/engine/renderer/metadata"

type Loader interface {
	// Load reads path. params is loader specific and may be nil.
	Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error)
	Unload(*metadata.Resource) error
}
