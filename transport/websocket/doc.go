// Package websocket streams game events to browser and tool clients.
//
// Clients connect to /ws?game={id} and receive a Message for every event on
// that game: "created", "shot", "game_over", "cheat" and "deleted". Frames
// are JSON text by default; ?format=msgpack switches the connection to
// MessagePack binary frames using the same field names.
//
// The Hub owns all client bookkeeping on its Run goroutine. Publish never
// blocks: the game service calls it while holding a game's lock.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	svc := service.NewGameService(sessions, configs, service.WithPublisher(hub))
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("game"), r.URL.Query().Get("format"))
//	})
package websocket
