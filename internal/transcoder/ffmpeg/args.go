package ffmpeg

import (
	"path/filepath"
	"strconv"
	"strings"
)

// ArgConfig holds all parameters for building the FFmpeg argument list.
type ArgConfig struct {
	Input           string // file path or http URL
	PlaylistPath    string
	SegmentDuration int
	// StreamCopy remuxes without re-encoding. Sources are already encoded
	// for delivery, so this is the default.
	StreamCopy   bool
	Preset       string
	CRF          int
	AudioBitrate string
}

// buildArgs constructs the FFmpeg argument list from config. This is a
// pure function with no side effects.
func buildArgs(cfg ArgConfig) []string {
	segDur := cfg.SegmentDuration
	if segDur <= 0 {
		segDur = 4
	}

	args := []string{
		"-hide_banner",
		"-fflags", "+genpts+discardcorrupt",
		"-err_detect", "ignore_err",
		"-avoid_negative_ts", "make_zero",
	}

	if strings.HasPrefix(cfg.Input, "http://") || strings.HasPrefix(cfg.Input, "https://") {
		args = append(args, "-reconnect", "1", "-reconnect_streamed", "1")
	}

	args = append(args, "-i", cfg.Input)

	if cfg.StreamCopy {
		args = append(args, "-c", "copy")
	} else {
		preset := cfg.Preset
		if preset == "" {
			preset = "veryfast"
		}
		crf := cfg.CRF
		if crf <= 0 {
			crf = 21
		}
		audioBitrate := cfg.AudioBitrate
		if audioBitrate == "" {
			audioBitrate = "128k"
		}
		args = append(args,
			"-c:v", "libx264",
			"-pix_fmt", "yuv420p",
			"-preset", preset,
			"-crf", strconv.Itoa(crf),
			"-c:a", "aac",
			"-b:a", audioBitrate,
			"-ac", "2",
		)
	}

	segmentPattern := filepath.Join(filepath.Dir(cfg.PlaylistPath), "segment_%05d.ts")
	args = append(args,
		"-f", "hls",
		"-hls_time", strconv.Itoa(segDur),
		"-hls_list_size", "0",
		"-hls_playlist_type", "event",
		"-hls_flags", "append_list+independent_segments",
		"-hls_segment_filename", segmentPattern,
		cfg.PlaylistPath,
	)
	return args
}
