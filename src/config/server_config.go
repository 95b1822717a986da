package config

import (
	"net/http"

	"github.com/gorilla/websocket"

	"autonomity/src/datamodels"
	"autonomity/src/utils/general"
)

// NewDefaultWSConfig allows any origin when origins contains "*".
func NewDefaultWSConfig(origins []string) datamodels.WSConfig {
	return datamodels.WSConfig{
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 || general.ItemInSlice(origins, "*") {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || general.ItemInSlice(origins, origin)
			},
		},
	}
}
