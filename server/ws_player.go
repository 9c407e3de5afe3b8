package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"LumiFM/core/player"
	"LumiFM/logger"
)

// WSMessage WebSocket 消息结构
type WSMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// 客户端可以下发的意图类型
const (
	wsMsgPing   = "ping"
	wsMsgPong   = "pong"
	wsMsgState  = "state"
	wsMsgPlay   = "play"
	wsMsgPause  = "pause"
	wsMsgToggle = "toggle"
	wsMsgNext   = "next"
	wsMsgPrev   = "prev"
	wsMsgSeek   = "seek"
	wsMsgVolume = "volume"
	wsMsgMute   = "mute"
	wsMsgMode   = "mode"
	wsMsgSelect = "select"
)

var playerUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// playerClient 一个 WebSocket 观众连接。
// 所有写入都经过 send 通道，由写协程串行落盘，避免并发写连接。
type playerClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func (c *playerClient) enqueue(msg *WSMessage) {
	msg.Timestamp = time.Now().UnixMilli()
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		// 队列满时丢弃，慢客户端不阻塞播放核心
	}
}

// PlayerSocketHandler 将连接升级为 WebSocket，推送播放状态并接收控制意图。
func (h *APIHandler) PlayerSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := playerUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket 升级失败", logger.ErrorField(err))
		return
	}

	client := &playerClient{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, 64),
	}
	snapshots := h.player.Subscribe()

	logger.Info("播放器 WebSocket 连接建立", logger.String("client", client.id))

	go h.playerWritePump(client, snapshots)
	h.playerReadPump(client)
}

// playerReadPump 读取客户端意图。返回时关闭 send 通道，写协程随之退出。
func (h *APIHandler) playerReadPump(client *playerClient) {
	defer func() {
		close(client.send)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(4096)
	client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error",
					logger.ErrorField(err),
					logger.String("client", client.id))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Warn("invalid message format",
				logger.ErrorField(err),
				logger.String("client", client.id))
			continue
		}

		h.handleIntent(client, &msg)
	}
}

// handleIntent 执行单条客户端意图。未知类型只记日志，不断开连接。
func (h *APIHandler) handleIntent(client *playerClient, msg *WSMessage) {
	switch msg.Type {
	case wsMsgPing:
		client.enqueue(&WSMessage{Type: wsMsgPong})
	case wsMsgPlay:
		h.player.Play()
	case wsMsgPause:
		h.player.Pause()
	case wsMsgToggle:
		h.player.TogglePlay()
	case wsMsgNext:
		h.player.Next()
	case wsMsgPrev:
		h.player.Previous()
	case wsMsgSeek:
		var data struct {
			Seconds float64 `json:"seconds"`
		}
		if err := json.Unmarshal(msg.Data, &data); err == nil {
			h.player.Seek(data.Seconds)
		}
	case wsMsgVolume:
		var data struct {
			Volume float64 `json:"volume"`
		}
		if err := json.Unmarshal(msg.Data, &data); err == nil {
			h.player.SetVolume(data.Volume)
		}
	case wsMsgMute:
		h.player.ToggleMute()
	case wsMsgMode:
		h.player.CyclePlayMode()
	case wsMsgSelect:
		var data struct {
			TrackID int64 `json:"trackId"`
		}
		if err := json.Unmarshal(msg.Data, &data); err == nil {
			h.player.SelectTrack(data.TrackID)
		}
	default:
		logger.Warn("unknown intent type",
			logger.String("type", msg.Type),
			logger.String("client", client.id))
	}
}

// playerWritePump 推送状态快照、透传 send 队列并维持心跳。
func (h *APIHandler) playerWritePump(client *playerClient, snapshots <-chan player.Snapshot) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		h.player.Unsubscribe(snapshots)
		client.conn.Close()
		logger.Info("播放器 WebSocket 连接关闭", logger.String("client", client.id))
	}()

	// 连接建立后立刻推一次当前状态
	if err := writeSnapshot(client.conn, h.player.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case data, ok := <-client.send:
			if !ok {
				client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case snap, ok := <-snapshots:
			if !ok {
				// 播放核心已关闭
				client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := writeSnapshot(client.conn, snap); err != nil {
				logger.Debug("failed to push snapshot",
					logger.ErrorField(err),
					logger.String("client", client.id))
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snap player.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	msg := &WSMessage{Type: wsMsgState, Data: data, Timestamp: time.Now().UnixMilli()}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, payload)
}
