package rendering

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CaptionStyle is the libass force_style payload for burned-in captions:
// large yellow Arial with a heavy black outline, centered on the frame.
const CaptionStyle = "Fontname=Arial,Fontsize=75,PrimaryColour=&H00FFFF,OutlineColour=&H000000,BorderStyle=1,Outline=4,Shadow=0,Alignment=5"

// WriteConcatManifest writes the concat demuxer manifest listing the scene
// clips in playback order. Paths are absolute with forward slashes so the
// demuxer accepts them regardless of platform.
func WriteConcatManifest(path string, clips []string) error {
	var builder strings.Builder
	for _, clip := range clips {
		abs, err := filepath.Abs(clip)
		if err != nil {
			return fmt.Errorf("resolve clip path: %w", err)
		}
		builder.WriteString("file '")
		builder.WriteString(filepath.ToSlash(abs))
		builder.WriteString("'\n")
	}
	if err := os.WriteFile(path, []byte(builder.String()), 0o644); err != nil {
		return fmt.Errorf("write concat manifest: %w", err)
	}
	return nil
}

// escapeSubtitlePath rewrites a path for use inside the ffmpeg subtitles
// filter: backslashes become forward slashes and colons (Windows drive
// letters) are escaped.
func escapeSubtitlePath(path string) string {
	escaped := strings.ReplaceAll(path, `\`, "/")
	return strings.ReplaceAll(escaped, ":", `\:`)
}

// SubtitleFilter builds the -vf argument that burns the caption file into
// the video with the house caption style. The caption path must be absolute.
func SubtitleFilter(captionPath string) string {
	return fmt.Sprintf("subtitles='%s':force_style='%s'", escapeSubtitlePath(captionPath), CaptionStyle)
}

// MuxCommand assembles the ffmpeg argv that concatenates the scene clips,
// lays the narration underneath, and burns in the captions. All paths must
// be absolute.
func MuxCommand(binary, manifestPath, audioPath, captionPath, outputPath string) []string {
	return []string{
		binary, "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-i", audioPath,
		"-vf", SubtitleFilter(captionPath),
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "libx264",
		"-c:a", "aac",
		"-shortest",
		"-preset", "ultrafast",
		outputPath,
	}
}
