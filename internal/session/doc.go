// Package session holds the in-memory state of one bulk generation
// session: the API key pool, the prompt text and generation settings,
// the rotation key index carried between runs, and the current and
// historical results.
//
// A session runs at most one generation or rewrite at a time. Every
// failure is both returned to the caller and kept as the session's last
// error message so an interactive front end can show it later.
package session
