// Package singleinstance keeps one background launcher per user session.
// Windows uses a named kernel mutex; other platforms hold an advisory file
// lock in the user's runtime directory.
package singleinstance

import "errors"

// ErrAlreadyRunning is returned by TryLock when another instance holds the lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

// instancePrefix is shared with the activation endpoint name.
const instancePrefix = "quicklaunch"
