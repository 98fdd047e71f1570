package chat

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// DispatchResult counts the outcome of one fan-out.
type DispatchResult struct {
	Recipients int
	Delivered  int
	Failed     int
}

// Dispatcher appends messages to a room and relays them to its members.
// Delivery is fire-and-forget: there is no retry and no acknowledgment.
type Dispatcher struct {
	registry      *Registry
	rooms         *Rooms
	excludeSender bool
	log           logrus.FieldLogger

	// onSendFailure is called for each recipient whose send failed.
	onSendFailure func(c *Connection, err error)
}

// NewDispatcher returns a dispatcher over registry and rooms. When
// excludeSender is set the sender does not receive its own message.
func NewDispatcher(registry *Registry, rooms *Rooms, excludeSender bool, log logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{
		registry:      registry,
		rooms:         rooms,
		excludeSender: excludeSender,
		log:           log,
	}
}

// Publish appends msg to roomID and sends the stored message to every member
// except, optionally, senderID. A failing recipient is logged and skipped.
func (d *Dispatcher) Publish(roomID string, msg Message, senderID string) (Message, DispatchResult, error) {
	var res DispatchResult

	stored, members, err := d.rooms.Append(roomID, msg)
	if err != nil {
		return Message{}, res, err
	}

	payload, err := EncodeEvent(EventChatMessage, stored)
	if err != nil {
		return stored, res, err
	}

	for _, id := range members {
		if d.excludeSender && id == senderID {
			continue
		}
		res.Recipients++

		c, ok := d.registry.Lookup(id)
		if !ok {
			res.Failed++
			d.log.WithFields(logrus.Fields{"conn": id, "room": roomID}).Debug("Recipient left before delivery")
			continue
		}

		if err := c.Send(payload); err != nil {
			res.Failed++
			d.handleSendFailure(c, err)
			continue
		}
		res.Delivered++
	}

	d.log.WithFields(logrus.Fields{
		"room":       roomID,
		"message":    stored.ID,
		"recipients": res.Recipients,
		"failed":     res.Failed,
	}).Debug("Broadcast message")

	return stored, res, nil
}

func (d *Dispatcher) handleSendFailure(c *Connection, err error) {
	if errors.Is(err, ErrConnectionLost) {
		d.log.WithField("conn", c.ID()).Debug("Skipping send to disconnected client")
		return
	}

	d.log.WithFields(logrus.Fields{
		"conn":   c.ID(),
		"remote": c.RemoteAddr(),
	}).WithError(err).Warn("Failed to deliver message")

	if d.onSendFailure != nil {
		d.onSendFailure(c, err)
	}
}
