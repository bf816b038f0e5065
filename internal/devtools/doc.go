// Package devtools holds passive observers for stores.
//
// Observers subscribe through Engine.OnAll only and never write to the
// store they watch. AttachLogger mirrors every change to a slog.Logger;
// Recorder appends the change stream to a SQLite database so a session can
// be inspected after the process exits.
//
// The recorder keeps the event stream, not the state: there is no API to
// load a recorded session back into a store.
package devtools
