/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package config

const (
	// viper keys for the optional server config file
	apiServerPort  = "server.port"
	apiServerHost  = "server.host"
	workerCount    = "worker.count"
	workerQueue    = "worker.queue"
	healthEnable   = "health.enable"
	healthSchedule = "health.schedule"
	tracingEnable  = "tracing.enable"
	engineRepoKey  = "engine.repo"
)

const (
	// AppVersion is reported by GET /status.
	AppVersion = "1.0.0"

	// DefaultHost is the bind address handed to engine instances.
	DefaultHost = "127.0.0.1"
	// DefaultPort is the first engine port.
	DefaultPort = 8188

	// MaxInstances caps the registry size.
	MaxInstances = 8
	// PortRangeStart and PortRangeEnd bound automatic port assignment.
	PortRangeStart = 8188
	PortRangeEnd   = 8199

	// DefaultEngineRepo is cloned by the installer.
	DefaultEngineRepo = "https://github.com/Comfy-Org/ComfyUI.git"

	// EngineEntryFile is the engine's entry point inside the engine directory.
	EngineEntryFile = "main.py"
)

// VramModes maps a mode name to the engine CLI flags it implies.
// The map doubles as the validation set for instance intake.
var VramModes = map[string][]string{
	"normal": {},
	"low":    {"--lowvram"},
	"none":   {"--novram"},
	"cpu":    {"--cpu"},
}

// VramDescriptions are the operator-facing explanations of each mode.
var VramDescriptions = map[string]string{
	"normal": "Default mode. Uses GPU normally. Best for GPUs with 8GB+ VRAM.",
	"low":    "Low VRAM mode. Offloads model parts to CPU as needed. For 4-6GB GPUs.",
	"none":   "No VRAM mode. Keeps models in CPU RAM, runs compute on GPU. For 2-4GB GPUs. Slower.",
	"cpu":    "CPU only. No GPU used at all. Very slow, but works without a compatible GPU.",
}

// VramModeNames returns the mode names in a stable operator-facing
// order.
func VramModeNames() []string {
	return []string{"normal", "low", "none", "cpu"}
}

// ExtraFlag describes an optional engine startup flag that instances
// may toggle independently of the VRAM mode.
type ExtraFlag struct {
	Flag        string `json:"flag"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// ExtraFlags is the catalog of optional engine flags surfaced by the
// instance listing endpoint.
var ExtraFlags = map[string]ExtraFlag{
	"sage_attention": {
		Flag:        "--use-sage-attention",
		Label:       "SageAttention",
		Description: "2-3x faster attention. Great for video. Use 'Install SageAttention' first.",
	},
	"cuda_malloc": {
		Flag:        "--cuda-malloc",
		Label:       "CUDA Malloc",
		Description: "Enable CUDA malloc for faster memory allocation. May improve speed on modern GPUs.",
	},
	"bf16_unet": {
		Flag:        "--force-bf16-unet",
		Label:       "BF16 UNet",
		Description: "Force BF16 precision for UNet. Can save VRAM on Ampere+ GPUs (RTX 30xx/40xx).",
	},
	"fp16_vae": {
		Flag:        "--force-fp16-vae",
		Label:       "FP16 VAE",
		Description: "Force FP16 precision for VAE. Saves VRAM but may cause slight quality differences.",
	},
	"preview_auto": {
		Flag:        "--preview-method auto",
		Label:       "Live Preview",
		Description: "Show live image previews during generation. Small performance cost.",
	},
	"disable_metadata": {
		Flag:        "--disable-metadata",
		Label:       "No Metadata",
		Description: "Don't save workflow metadata in output images. Reduces file size.",
	},
}

// ModelCategories mirrors the engine's models directory layout.
var ModelCategories = []string{
	"checkpoints",
	"diffusion_models",
	"vae",
	"clip",
	"text_encoders",
	"loras",
	"controlnet",
	"gguf",
	"unet",
	"embeddings",
	"upscale_models",
	"clip_vision",
	"model_patches",
	"latent_upscale_models",
}
