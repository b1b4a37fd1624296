package ports

// TranscodeJob is a handle on one running external transcoding process.
type TranscodeJob interface {
	Start() error
	// Lines streams the process log output line by line. The channel is
	// closed when the process exits.
	Lines() <-chan string
	// Done is closed when the process has exited.
	Done() <-chan struct{}
	// Err returns the exit error, valid once Done is closed.
	Err() error
	// Stop interrupts the process. Safe to call more than once.
	Stop()
	// Stopped reports whether Stop was called, so an exit following an
	// interrupt is not mistaken for a natural completion.
	Stopped() bool
}

// Transcoder launches external jobs that write a segmented playlist plus
// media segments into the playlist path's directory.
type Transcoder interface {
	// StreamJob prepares a job reading inputURL and producing playlistPath.
	// It fails if a live job is already producing the same path.
	StreamJob(inputURL, playlistPath string) (TranscodeJob, error)
	// Interrupt kills the job producing playlistPath, reporting whether one
	// was found.
	Interrupt(playlistPath string) bool
	// InterruptAll kills every active job and returns how many were killed.
	InterruptAll() int
	ActiveCount() int
}
