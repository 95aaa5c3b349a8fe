package deps

import "newsreel/internal/config"

// Requirements lists the external binaries a working install needs, in
// display order. Both are mandatory: rendering cannot degrade without them.
func Requirements(cfg *config.Config) []Requirement {
	ffmpeg, ffprobe := "ffmpeg", "ffprobe"
	if cfg != nil {
		ffmpeg = cfg.FFmpegBinary()
		ffprobe = cfg.FFprobeBinary()
	}
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpeg,
			Description: "Animates scene stills and muxes the final video",
		},
		{
			Name:        "FFprobe",
			Command:     ffprobe,
			Description: "Probes narration duration and validates rendered output",
		},
	}
}
