package wallpapergen

// Model is a remote model identifier.
type Model string

// String returns the model identifier.
func (m Model) String() string {
	return string(m)
}

const (
	// ModelImagen4 generates the wallpaper batches.
	ModelImagen4 Model = "imagen-4.0-generate-001"

	// ModelGeminiFlash answers the cheap credential validation call.
	ModelGeminiFlash Model = "gemini-2.5-flash"

	DefaultImageModel      = ModelImagen4
	DefaultValidationModel = ModelGeminiFlash
)

// AspectRatio represents the aspect ratio for generated images.
type AspectRatio string

const (
	AspectRatio9x16 AspectRatio = "9:16" // Phone portrait
)

// String returns the string representation for API calls.
func (a AspectRatio) String() string {
	return string(a)
}

const (
	// BatchSize is the number of images requested per generation call.
	BatchSize = 4

	// OutputMIMEType is the requested output format.
	OutputMIMEType = "image/png"

	// WallpaperAspectRatio is the fixed portrait framing.
	WallpaperAspectRatio = AspectRatio9x16

	// PromptSuffix frames every prompt as a phone wallpaper.
	PromptSuffix = ", mobile wallpaper, high resolution, photorealistic, 9:16 aspect ratio"

	// ValidationPrompt is the minimal text sent when checking a credential.
	ValidationPrompt = "hello"
)

// AugmentPrompt appends the wallpaper framing to a user prompt.
func AugmentPrompt(prompt string) string {
	return prompt + PromptSuffix
}

// GenerateRequest is the normalized request an ImageGenerator sends.
type GenerateRequest struct {
	Model          Model
	Prompt         string // Augmented prompt
	NumberOfImages int
	OutputMIMEType string
	AspectRatio    AspectRatio
}

// NewGenerateRequest checks the preconditions of a generation call and builds
// the request for model. It fails with ErrInvalidRequest before any network
// work when the prompt is blank or the credential is absent.
func NewGenerateRequest(model Model, prompt string, credential Credential) (*GenerateRequest, error) {
	if err := ValidatePrompt(prompt); err != nil {
		return nil, err
	}
	if err := ValidateCredential(credential); err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultImageModel
	}
	return &GenerateRequest{
		Model:          model,
		Prompt:         AugmentPrompt(prompt),
		NumberOfImages: BatchSize,
		OutputMIMEType: OutputMIMEType,
		AspectRatio:    WallpaperAspectRatio,
	}, nil
}
