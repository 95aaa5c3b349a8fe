package rendering

import (
	"fmt"
	"math"
	"strconv"
)

// Output geometry and animation constants. Scenes render as vertical
// 1080x1920 clips at 24 fps; stills are upscaled to 4000px wide before the
// zoompan so the push-in never runs out of pixels.
const (
	FPS          = 24
	outputWidth  = 1080
	outputHeight = 1920
	upscaleWidth = 4000
	maxZoom      = 1.5
	zoomTravel   = 0.5
)

// FrameCount converts a scene duration in seconds to a whole frame count at
// the output frame rate.
func FrameCount(duration float64) int {
	return int(math.Round(duration * FPS))
}

// ZoomExpr returns the zoompan zoom expression for one scene. Even-indexed
// scenes push in from 1.0 toward 1.5; odd-indexed scenes pull back from 1.5
// toward 1.0. The per-frame step spreads the full zoom travel across the
// scene's frames so short and long scenes animate at the same apparent speed.
func ZoomExpr(sceneIndex, frames int) string {
	if frames < 1 {
		frames = 1
	}
	step := zoomTravel / float64(frames)
	if sceneIndex%2 == 0 {
		return fmt.Sprintf("min(zoom+%.6f,%v)", step, maxZoom)
	}
	return fmt.Sprintf("max(%v-%.6f*on,1)", maxZoom, step)
}

// SceneFilter assembles the ffmpeg -vf chain for one still: upscale, zoompan
// centered on the image, vertical 1080x1920 output.
func SceneFilter(sceneIndex, frames int) string {
	return fmt.Sprintf(
		"scale=%d:-1,zoompan=z='%s':d=%d:x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':s=%dx%d,format=yuv420p",
		upscaleWidth, ZoomExpr(sceneIndex, frames), frames, outputWidth, outputHeight,
	)
}

// SceneCommand assembles the ffmpeg argv that animates one still into a
// scene clip of the given duration.
func SceneCommand(binary, imagePath string, sceneIndex int, duration float64, outputPath string) []string {
	return []string{
		binary, "-y",
		"-i", imagePath,
		"-vf", SceneFilter(sceneIndex, FrameCount(duration)),
		"-c:v", "libx264",
		"-t", formatSeconds(duration),
		"-r", strconv.Itoa(FPS),
		"-pix_fmt", "yuv420p",
		"-preset", "fast",
		outputPath,
	}
}

// formatSeconds renders a duration for ffmpeg -t at millisecond precision,
// matching the caption timing resolution.
func formatSeconds(duration float64) string {
	return strconv.FormatFloat(duration, 'f', 3, 64)
}
