// Package settings exposes the settings store on the bus: request/reply
// control topics plus a retained value topic per setting, so late-starting
// services always see current values.
package settings

import (
	"context"

	"stagecode-go/bus"
	"stagecode-go/errcode"
	"stagecode-go/settings"
	"stagecode-go/types"
)

const serviceName = "settings"

var (
	topicControl = bus.T(serviceName, "control", bus.WildcardOne)
	topicState   = bus.T(serviceName, "state")
)

type Service struct {
	Name  string
	store *settings.Store
}

func NewService(store *settings.Store) *Service {
	return &Service{Name: serviceName, store: store}
}

// Start publishes the retained value set and enters the control loop.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go s.serviceLoop(ctx, conn)
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	sub := conn.Subscribe(topicControl)
	defer conn.Unsubscribe(sub)

	s.publishAll(conn)
	publishState(conn, "ready", "")

	for {
		select {
		case <-ctx.Done():
			publishState(conn, "stopped", "")
			return
		case msg := <-sub.Channel():
			s.handle(conn, msg)
		}
	}
}

func (s *Service) handle(conn *bus.Connection, msg *bus.Message) {
	op, _ := msg.Topic[2].(string)
	switch op {
	case "get":
		name, ok := payloadName(msg.Payload)
		if !ok {
			replyErr(conn, msg, errcode.InvalidPayload)
			return
		}
		v, err := s.store.Get(name)
		if err != nil {
			replyErr(conn, msg, err)
			return
		}
		conn.Reply(msg, types.SettingValue{Name: name, Value: v}, false)
	case "set":
		name, value, ok := payloadSet(msg.Payload)
		if !ok {
			replyErr(conn, msg, errcode.InvalidPayload)
			return
		}
		if err := s.store.Set(name, value); err != nil {
			replyErr(conn, msg, err)
			return
		}
		s.publishValue(conn, name)
		conn.Reply(msg, types.OKReply{OK: true}, false)
	case "reset":
		name, ok := payloadName(msg.Payload)
		if !ok {
			replyErr(conn, msg, errcode.InvalidPayload)
			return
		}
		if err := s.store.Reset(name); err != nil {
			replyErr(conn, msg, err)
			return
		}
		s.publishValue(conn, name)
		conn.Reply(msg, types.OKReply{OK: true}, false)
	case "list":
		conn.Reply(msg, types.SettingsList{Settings: s.store.List()}, false)
	default:
		replyErr(conn, msg, errcode.Unsupported)
	}
}

// publishAll retains one settings/value/<name> message per setting.
func (s *Service) publishAll(conn *bus.Connection) {
	for _, info := range s.store.List() {
		conn.Publish(&bus.Message{
			Topic:    bus.T(serviceName, "value", info.Name),
			Payload:  types.SettingValue{Name: info.Name, Value: info.Value},
			Retained: true,
		})
	}
}

func (s *Service) publishValue(conn *bus.Connection, name string) {
	v, err := s.store.Get(name)
	if err != nil {
		return
	}
	conn.Publish(&bus.Message{
		Topic:    bus.T(serviceName, "value", name),
		Payload:  types.SettingValue{Name: name, Value: v},
		Retained: true,
	})
}

func publishState(conn *bus.Connection, level, errStr string) {
	conn.Publish(&bus.Message{
		Topic:    topicState,
		Payload:  types.ServiceState{Level: level, Error: errStr},
		Retained: true,
	})
}

func replyErr(conn *bus.Connection, msg *bus.Message, err error) {
	conn.Reply(msg, types.ErrorReply{OK: false, Error: string(errcode.Of(err))}, false)
}

// Control payloads arrive typed from in-process services or as generic maps
// from a decoded blob; accept both.
func payloadName(p any) (string, bool) {
	switch v := p.(type) {
	case types.SettingsGet:
		return v.Name, v.Name != ""
	case string:
		return v, v != ""
	case map[string]any:
		name, ok := v["name"].(string)
		return name, ok && name != ""
	}
	return "", false
}

func payloadSet(p any) (string, any, bool) {
	switch v := p.(type) {
	case types.SettingsSet:
		return v.Name, v.Value, v.Name != ""
	case map[string]any:
		name, ok := v["name"].(string)
		if !ok || name == "" {
			return "", nil, false
		}
		value, ok := v["value"]
		return name, value, ok
	}
	return "", nil, false
}
