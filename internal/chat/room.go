package chat

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Room is a named broadcast domain: a member set plus an append-only log.
// Both are mutated only through Rooms.
type Room struct {
	id        string
	createdAt time.Time

	mu      sync.RWMutex
	members map[string]struct{}
	log     []Message
	closed  bool
}

// RoomSummary describes a room for listings.
type RoomSummary struct {
	ID        string    `json:"id"`
	Members   int       `json:"members"`
	Messages  int       `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
}

func (r *Room) summary() RoomSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RoomSummary{
		ID:        r.id,
		Members:   len(r.members),
		Messages:  len(r.log),
		CreatedAt: r.createdAt,
	}
}

// Rooms owns every room. Its own lock guards only the id to room map; room
// state is guarded per room.
type Rooms struct {
	mu           sync.Mutex
	rooms        map[string]*Room
	historyLimit int
	now          func() time.Time
}

// NewRooms returns an empty room store. historyLimit caps each room log;
// zero or less keeps every message.
func NewRooms(historyLimit int) *Rooms {
	if historyLimit < 0 {
		historyLimit = 0
	}
	return &Rooms{
		rooms:        make(map[string]*Room),
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

func (s *Rooms) getOrCreate(roomID string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[roomID]
	if !ok {
		r = &Room{
			id:        roomID,
			createdAt: s.now(),
			members:   make(map[string]struct{}),
		}
		s.rooms[roomID] = r
	}
	return r
}

func (s *Rooms) get(roomID string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms[roomID]
}

// Join adds connID to the room, creating the room if needed.
func (s *Rooms) Join(roomID, connID string) {
	for {
		r := s.getOrCreate(roomID)
		r.mu.Lock()
		if r.closed {
			// Lost a race with the last member leaving; the dead room is
			// about to be dropped from the map.
			r.mu.Unlock()
			continue
		}
		r.members[connID] = struct{}{}
		r.mu.Unlock()
		return
	}
}

// Leave removes connID from the room and deletes the room once it is empty.
// It reports whether the room was deleted.
func (s *Rooms) Leave(roomID, connID string) bool {
	r := s.get(roomID)
	if r == nil {
		return false
	}

	r.mu.Lock()
	delete(r.members, connID)
	empty := len(r.members) == 0 && !r.closed
	if empty {
		r.closed = true
	}
	r.mu.Unlock()

	if !empty {
		return false
	}

	s.mu.Lock()
	if s.rooms[roomID] == r {
		delete(s.rooms, roomID)
	}
	s.mu.Unlock()
	return true
}

// Append stamps msg with an id, the room id and the current time, appends
// it to the log and returns it with the member ids at the moment of append.
func (s *Rooms) Append(roomID string, msg Message) (Message, []string, error) {
	r := s.get(roomID)
	if r == nil {
		return Message{}, nil, ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return Message{}, nil, ErrRoomNotFound
	}

	msg.ID = uuid.NewString()
	msg.RoomID = roomID
	msg.Timestamp = s.now()

	r.log = append(r.log, msg)
	if s.historyLimit > 0 && len(r.log) > s.historyLimit {
		r.log = r.log[len(r.log)-s.historyLimit:]
	}

	members := make([]string, 0, len(r.members))
	for id := range r.members {
		members = append(members, id)
	}
	return msg, members, nil
}

// Members returns the member ids of the room, or nil when it does not exist.
func (s *Rooms) Members(roomID string) []string {
	r := s.get(roomID)
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	members := make([]string, 0, len(r.members))
	for id := range r.members {
		members = append(members, id)
	}
	sort.Strings(members)
	return members
}

// IsMember reports whether connID is in the room.
func (s *Rooms) IsMember(roomID, connID string) bool {
	r := s.get(roomID)
	if r == nil {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[connID]
	return ok
}

// History returns a copy of the room log in insertion order.
func (s *Rooms) History(roomID string) ([]Message, bool) {
	r := s.get(roomID)
	if r == nil {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Message(nil), r.log...), true
}

func (s *Rooms) Summary(roomID string) (RoomSummary, bool) {
	r := s.get(roomID)
	if r == nil {
		return RoomSummary{}, false
	}
	return r.summary(), true
}

// List summarizes every room, ordered by id.
func (s *Rooms) List() []RoomSummary {
	s.mu.Lock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	s.mu.Unlock()

	summaries := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		summaries = append(summaries, r.summary())
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries
}

func (s *Rooms) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}
