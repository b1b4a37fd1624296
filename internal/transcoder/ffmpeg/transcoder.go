package ffmpeg

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"matchcast/internal/domain/ports"
)

// Transcoder runs ffmpeg subprocesses, one per playlist path. It tracks
// live jobs so a second job for the same path is refused and stragglers
// can be interrupted in bulk.
type Transcoder struct {
	FFmpegPath      string
	SegmentDuration int
	StreamCopy      bool
	Log             *slog.Logger

	mu   sync.Mutex
	jobs map[string]*Job
}

func New(ffmpegPath string, segmentDuration int, streamCopy bool, log *slog.Logger) *Transcoder {
	return &Transcoder{
		FFmpegPath:      ffmpegPath,
		SegmentDuration: segmentDuration,
		StreamCopy:      streamCopy,
		Log:             log,
		jobs:            make(map[string]*Job),
	}
}

// StreamJob prepares a job transcoding inputURL into playlistPath's
// directory, creating it if needed. The job is not started.
func (t *Transcoder) StreamJob(inputURL, playlistPath string) (ports.TranscodeJob, error) {
	abs, err := filepath.Abs(playlistPath)
	if err != nil {
		return nil, fmt.Errorf("resolving playlist path: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.jobs[abs]; ok && !existing.finished() {
		return nil, fmt.Errorf("a job is already producing %s", abs)
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	args := buildArgs(ArgConfig{
		Input:           inputURL,
		PlaylistPath:    abs,
		SegmentDuration: t.SegmentDuration,
		StreamCopy:      t.StreamCopy,
	})
	job := &Job{
		transcoder:   t,
		playlistPath: abs,
		cmd:          exec.Command(t.FFmpegPath, args...),
		lines:        make(chan string, 64),
		done:         make(chan struct{}),
		log:          t.Log,
	}
	t.jobs[abs] = job
	return job, nil
}

// Interrupt kills the job producing playlistPath, reporting whether one
// was found.
func (t *Transcoder) Interrupt(playlistPath string) bool {
	abs, err := filepath.Abs(playlistPath)
	if err != nil {
		return false
	}
	t.mu.Lock()
	job, ok := t.jobs[abs]
	t.mu.Unlock()
	if !ok {
		return false
	}
	job.Stop()
	return true
}

// InterruptAll kills every live job and returns how many were signalled.
func (t *Transcoder) InterruptAll() int {
	t.mu.Lock()
	jobs := make([]*Job, 0, len(t.jobs))
	for _, job := range t.jobs {
		jobs = append(jobs, job)
	}
	t.mu.Unlock()

	for _, job := range jobs {
		job.Stop()
	}
	return len(jobs)
}

func (t *Transcoder) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

func (t *Transcoder) remove(playlistPath string) {
	t.mu.Lock()
	delete(t.jobs, playlistPath)
	t.mu.Unlock()
}

// Job is one ffmpeg subprocess. Progress information arrives on stderr,
// which is streamed line by line over Lines.
type Job struct {
	transcoder   *Transcoder
	playlistPath string
	cmd          *exec.Cmd
	lines        chan string
	done         chan struct{}
	log          *slog.Logger

	stopOnce  sync.Once
	stopAsked atomic.Bool
	exitErr   error
}

func (j *Job) Start() error {
	stderr, err := j.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("opening stderr pipe: %w", err)
	}
	if err := j.cmd.Start(); err != nil {
		j.transcoder.remove(j.playlistPath)
		return fmt.Errorf("starting ffmpeg: %w", err)
	}
	j.log.Info("ffmpeg started", "pid", j.cmd.Process.Pid, "playlist", j.playlistPath)

	go func() {
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		// ffmpeg updates its progress line with carriage returns.
		scanner.Split(scanCRorLF)
		for scanner.Scan() {
			j.lines <- scanner.Text()
		}
		close(j.lines)

		j.exitErr = j.cmd.Wait()
		j.transcoder.remove(j.playlistPath)
		close(j.done)
	}()
	return nil
}

func (j *Job) Lines() <-chan string { return j.lines }

func (j *Job) Done() <-chan struct{} { return j.done }

// Err returns the exit error, valid once Done is closed. A process killed
// by Stop reports a nil error.
func (j *Job) Err() error {
	if j.stopAsked.Load() {
		return nil
	}
	return j.exitErr
}

// Stopped reports whether Stop was called.
func (j *Job) Stopped() bool { return j.stopAsked.Load() }

// Stop asks ffmpeg to finalize the playlist and exit, escalating to a hard
// kill if it lingers.
func (j *Job) Stop() {
	j.stopOnce.Do(func() {
		j.stopAsked.Store(true)
		if j.cmd.Process == nil {
			return
		}
		if err := j.cmd.Process.Signal(syscall.SIGINT); err != nil {
			j.cmd.Process.Kill()
			return
		}
		go func() {
			select {
			case <-j.done:
			case <-time.After(5 * time.Second):
				j.log.Warn("ffmpeg ignored SIGINT, killing", "playlist", j.playlistPath)
				j.cmd.Process.Kill()
			}
		}()
	})
}

func (j *Job) finished() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// scanCRorLF splits on both \n and \r so in-place progress updates become
// separate lines.
func scanCRorLF(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
