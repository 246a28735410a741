/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package models

// RegistryEntry is one curated downloadable model.
type RegistryEntry struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Filename    string  `json:"filename"`
	URL         string  `json:"url"`
	SizeGB      float64 `json:"size_gb"`
	Description string  `json:"description"`
}

// registry is the curated model catalog surfaced by the API.
var registry = []RegistryEntry{
	{
		ID:          "sd15",
		Name:        "Stable Diffusion 1.5",
		Category:    "checkpoints",
		Filename:    "v1-5-pruned-emaonly.safetensors",
		URL:         "https://huggingface.co/stable-diffusion-v1-5/stable-diffusion-v1-5/resolve/main/v1-5-pruned-emaonly.safetensors",
		SizeGB:      4.0,
		Description: "Classic SD 1.5 base model. Small and fast, huge ecosystem of LoRAs.",
	},
	{
		ID:          "sdxl_base",
		Name:        "Stable Diffusion XL Base 1.0",
		Category:    "checkpoints",
		Filename:    "sd_xl_base_1.0.safetensors",
		URL:         "https://huggingface.co/stabilityai/stable-diffusion-xl-base-1.0/resolve/main/sd_xl_base_1.0.safetensors",
		SizeGB:      6.9,
		Description: "SDXL base model for 1024x1024 generation.",
	},
	{
		ID:          "sdxl_vae",
		Name:        "SDXL VAE",
		Category:    "vae",
		Filename:    "sdxl_vae.safetensors",
		URL:         "https://huggingface.co/stabilityai/sdxl-vae/resolve/main/sdxl_vae.safetensors",
		SizeGB:      0.3,
		Description: "Standalone VAE for SDXL checkpoints.",
	},
	{
		ID:          "flux_schnell",
		Name:        "FLUX.1 schnell",
		Category:    "diffusion_models",
		Filename:    "flux1-schnell.safetensors",
		URL:         "https://huggingface.co/black-forest-labs/FLUX.1-schnell/resolve/main/flux1-schnell.safetensors",
		SizeGB:      23.8,
		Description: "Fast FLUX variant, 4-step generation. Needs 24GB+ VRAM or low vram mode.",
	},
	{
		ID:          "flux_vae",
		Name:        "FLUX VAE",
		Category:    "vae",
		Filename:    "ae.safetensors",
		URL:         "https://huggingface.co/black-forest-labs/FLUX.1-schnell/resolve/main/ae.safetensors",
		SizeGB:      0.3,
		Description: "Autoencoder for FLUX models.",
	},
	{
		ID:          "clip_l",
		Name:        "CLIP-L Text Encoder",
		Category:    "text_encoders",
		Filename:    "clip_l.safetensors",
		URL:         "https://huggingface.co/comfyanonymous/flux_text_encoders/resolve/main/clip_l.safetensors",
		SizeGB:      0.25,
		Description: "CLIP-L text encoder used by FLUX and SD3.",
	},
	{
		ID:          "t5xxl_fp8",
		Name:        "T5-XXL FP8 Text Encoder",
		Category:    "text_encoders",
		Filename:    "t5xxl_fp8_e4m3fn.safetensors",
		URL:         "https://huggingface.co/comfyanonymous/flux_text_encoders/resolve/main/t5xxl_fp8_e4m3fn.safetensors",
		SizeGB:      4.9,
		Description: "FP8 quantized T5-XXL encoder, halves the memory of the fp16 version.",
	},
	{
		ID:          "esrgan_4x",
		Name:        "RealESRGAN 4x",
		Category:    "upscale_models",
		Filename:    "RealESRGAN_x4plus.pth",
		URL:         "https://github.com/xinntao/Real-ESRGAN/releases/download/v0.1.0/RealESRGAN_x4plus.pth",
		SizeGB:      0.07,
		Description: "General purpose 4x upscaler.",
	},
}
