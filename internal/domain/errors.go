package domain

import "errors"

var ErrNotFound = errors.New("not found")
var ErrEmptySource = errors.New("video source has no playable parts")
var ErrAlreadyStreaming = errors.New("a stream already exists for this source")
var ErrRefreshInProgress = errors.New("refresh already in progress for this part")
var ErrNotRegularFile = errors.New("path is not a regular file")
