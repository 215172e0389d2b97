package app

import "errors"

var (
	// ErrSaveInProgress rejects a save while another one is running.
	ErrSaveInProgress = errors.New("save already in progress")
	// ErrNothingToSave rejects a save of clean state.
	ErrNothingToSave = errors.New("no unsaved changes")
	// ErrClosed reports a command sent after the controller stopped.
	ErrClosed = errors.New("controller stopped")
	// ErrShopRequired reports an advance that would cross a branch stage
	// without a shop.
	ErrShopRequired = errors.New("shop required to advance items at a branch stage")
)
