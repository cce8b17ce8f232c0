package gemini

import "github.com/mhpenta/wallpapergen"

// ProviderName identifies this provider in ModelInfo.
const ProviderName = "gemini_api"

// Imagen4Info is the model info for Imagen 4, used for wallpaper batches.
var Imagen4Info = wallpapergen.ModelInfo{
	Name:        wallpapergen.ModelImagen4,
	Role:        wallpapergen.RoleImageGeneration,
	Provider:    ProviderName,
	Description: "Imagen 4 text-to-image",

	Capabilities: wallpapergen.ModelCapabilities{
		MaxOutputImages: 4,
		SupportedAspectRatios: []wallpapergen.AspectRatio{
			"1:1",
			"3:4",
			"4:3",
			wallpapergen.AspectRatio9x16,
			"16:9",
		},
		OutputMIMETypes: []string{"image/png", "image/jpeg"},
	},
}

// GeminiFlashInfo is the model info for Gemini 2.5 Flash.
// Only a one-word text call is made against it, to check a key.
var GeminiFlashInfo = wallpapergen.ModelInfo{
	Name:        wallpapergen.ModelGeminiFlash,
	Role:        wallpapergen.RoleCredentialValidation,
	Provider:    ProviderName,
	Description: "Gemini 2.5 Flash, used for credential checks",
}
