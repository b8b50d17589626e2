// Package session keeps the registry of live water fight games.
//
// Each game is a service.Session holding its own engine. Identifiers come
// from an IDAllocator: SequentialAllocator ("0", "1", ...) by default, or
// HexAllocator for short random identifiers. Lookups are case-insensitive.
//
// Usage:
//
//	manager := session.NewManager(session.WithAllocator(session.HexAllocator{}))
//
//	sess, err := manager.Create("classic", preset)
//	if err != nil {
//		return err
//	}
//
//	sess, err = manager.Get(sess.ID)
//
// The registry lock only guards the map. Operations on a single game are
// serialized by that game's own lock (service.Session.Lock).
package session
