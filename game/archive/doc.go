// Package archive records the results of finished water fight games.
//
// A Result is written once, when a game reaches PLAYER_WON or OPPONENTS_WON.
// Live games are never stored here and cannot be restored from it.
//
// Two stores are provided: MemoryStore for tests and ephemeral servers, and
// SQLiteStore backed by github.com/mattn/go-sqlite3.
package archive
