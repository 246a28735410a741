/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package nodes

// RegistryEntry is one curated installable custom node pack.
type RegistryEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Repo        string `json:"repo"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// registry is the curated custom node catalog surfaced by the API.
var registry = []RegistryEntry{
	{
		ID:          "manager",
		Name:        "ComfyUI Manager",
		Repo:        "https://github.com/ltdrdata/ComfyUI-Manager.git",
		Category:    "management",
		Description: "In-engine manager for installing further nodes and models.",
	},
	{
		ID:          "impact_pack",
		Name:        "Impact Pack",
		Repo:        "https://github.com/ltdrdata/ComfyUI-Impact-Pack.git",
		Category:    "utility",
		Description: "Detailer, segmentation and iterative upscale nodes.",
	},
	{
		ID:          "controlnet_aux",
		Name:        "ControlNet Auxiliary Preprocessors",
		Repo:        "https://github.com/Fannovel16/comfyui_controlnet_aux.git",
		Category:    "controlnet",
		Description: "Pose, depth, edge and other ControlNet preprocessors.",
	},
	{
		ID:          "ipadapter_plus",
		Name:        "IPAdapter Plus",
		Repo:        "https://github.com/cubiq/ComfyUI_IPAdapter_plus.git",
		Category:    "conditioning",
		Description: "Image prompt adapter nodes for style and subject transfer.",
	},
	{
		ID:          "videohelper",
		Name:        "Video Helper Suite",
		Repo:        "https://github.com/Kosinkadink/ComfyUI-VideoHelperSuite.git",
		Category:    "video",
		Description: "Load, combine and export video frames.",
	},
	{
		ID:          "kjnodes",
		Name:        "KJNodes",
		Repo:        "https://github.com/kijai/ComfyUI-KJNodes.git",
		Category:    "utility",
		Description: "Assorted quality-of-life nodes, masking and batching helpers.",
	},
	{
		ID:          "rgthree",
		Name:        "rgthree's nodes",
		Repo:        "https://github.com/rgthree/rgthree-comfy.git",
		Category:    "workflow",
		Description: "Workflow organization, reroutes, groups and progress display.",
	},
	{
		ID:          "gguf",
		Name:        "ComfyUI-GGUF",
		Repo:        "https://github.com/city96/ComfyUI-GGUF.git",
		Category:    "quantization",
		Description: "GGUF quantized model loaders for low VRAM setups.",
	},
}
