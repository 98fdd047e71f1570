// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, room inspection, and the built-in chat page.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Tyrowin/chatrelay/internal/chat"
)

// HealthText is the body served by the health endpoints.
const HealthText = "chatrelay server is running!"

// WebSocketHandler handles WebSocket upgrade requests. It validates that the
// request uses the GET method, upgrades the connection, opens a chat session
// in the room named by the "room" query parameter and starts the pumps.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).WithField("remote", r.RemoteAddr).Warn("WebSocket upgrade failed")
		return
	}

	client := NewClient(conn, s.sessions, r.RemoteAddr, s.cfg, s.log)

	query := r.URL.Query()
	session, err := s.sessions.Connect(client, chat.ConnectOptions{
		RoomID:     query.Get("room"),
		Name:       query.Get("name"),
		RemoteAddr: r.RemoteAddr,
	})
	if err != nil {
		s.log.WithError(err).WithField("remote", r.RemoteAddr).Error("Could not open session")
		_ = conn.Close()
		return
	}
	client.attach(session.ID())

	s.startPumps(client)
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, HealthText)
}

// RoomsHandler lists every live room.
func (s *Server) RoomsHandler(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.sessions.Rooms().List())
}

// RoomHandler describes one room.
func (s *Server) RoomHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	summary, ok := s.sessions.Rooms().Summary(id)
	if !ok {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

// RoomMessagesHandler returns the log of one room in insertion order.
func (s *Server) RoomMessagesHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	messages, ok := s.sessions.Rooms().History(id)
	if !ok {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	s.writeJSON(w, http.StatusOK, chat.HistoryPayload{Room: id, Messages: messages})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("Error writing JSON response")
	}
}

// TestPageHandler serves a chat page for trying the server from a browser:
// pick a name, then chat in the default room.
func TestPageHandler(log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := fmt.Fprint(w, testPageHTML); err != nil {
			log.WithError(err).Error("Error writing HTML response")
		}
	}
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>chatrelay</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; background-color: #000; }
        section { display: flex; height: 100vh; justify-content: center; align-items: center; }
        .box { width: 400px; background-color: #fff; padding: 30px; border-radius: 5px; }
        #messages { list-style: none; padding: 0; max-height: 300px; overflow-y: auto; }
        .hidden { display: none; }
        .status { color: gray; font-size: small; }
    </style>
</head>
<body>
<section>
    <div class="box">
        <div id="home">
            <label>Name:</label>
            <input id="nameInput">
            <button id="enterButton">Continue &gt;</button>
        </div>
        <div id="chat" class="hidden">
            <div class="status" id="status">Disconnected</div>
            <input id="textInput" placeholder="Your message">
            <button id="sendButton">send</button>
            <ul id="messages"></ul>
        </div>
    </div>
</section>
<script>
    let ws = null;
    let name = '';
    const messages = document.getElementById('messages');
    const statusDiv = document.getElementById('status');
    const textInput = document.getElementById('textInput');

    function addMessage(message) {
        const li = document.createElement('li');
        const author = document.createElement('b');
        author.textContent = (message.authorId || 'anonymous') + ':';
        li.appendChild(author);
        li.appendChild(document.createTextNode(' ' + message.text));
        messages.appendChild(li);
        messages.scrollTop = messages.scrollHeight;
    }

    function connect() {
        const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
        ws = new WebSocket(scheme + location.host + '/ws');
        ws.onopen = function() { statusDiv.textContent = 'Connected'; };
        ws.onclose = function() { statusDiv.textContent = 'Disconnected'; ws = null; };
        ws.onmessage = function(event) {
            const frame = JSON.parse(event.data);
            if (frame.event === 'chat message') {
                addMessage(frame.data);
            } else if (frame.event === 'joined') {
                statusDiv.textContent = 'Connected to room ' + frame.data.room;
            } else if (frame.event === 'error') {
                statusDiv.textContent = 'Error: ' + frame.data.message;
            }
        };
    }

    function send() {
        if (!ws || ws.readyState !== WebSocket.OPEN) {
            return;
        }
        ws.send(JSON.stringify({event: 'chat message', data: {authorId: name, text: textInput.value}}));
        textInput.value = '';
    }

    document.getElementById('enterButton').onclick = function() {
        name = document.getElementById('nameInput').value;
        if (name === '') {
            return;
        }
        document.getElementById('home').classList.add('hidden');
        document.getElementById('chat').classList.remove('hidden');
        connect();
    };
    document.getElementById('sendButton').onclick = send;
    textInput.addEventListener('keypress', function(e) {
        if (e.key === 'Enter') {
            send();
        }
    });
</script>
</body>
</html>`
