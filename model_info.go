package wallpapergen

// ModelRole is what a remote model is used for.
type ModelRole string

const (
	RoleImageGeneration      ModelRole = "image_generation"
	RoleCredentialValidation ModelRole = "credential_validation"
)

// ModelCapabilities describes the parts of a model this client relies on.
type ModelCapabilities struct {
	MaxOutputImages       int // Max images generated per request
	SupportedAspectRatios []AspectRatio
	OutputMIMETypes       []string
}

// ModelInfo contains metadata for a model used by a provider.
type ModelInfo struct {
	Name         Model
	Role         ModelRole
	Provider     string // Which provider serves this model
	Description  string
	Capabilities ModelCapabilities
}
