package kds

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/hikarusato/tablelink/models"
	"github.com/hikarusato/tablelink/utils"
)

// Event types pushed to staff boards and customer trackers.
const (
	EventSessionUpdate    = "session_update"
	EventNewTicket        = "new_ticket"
	EventTicketUpdate     = "ticket_update"
	EventTicketPrinted    = "ticket_printed"
	EventBillRequested    = "bill_requested"
	EventTableReleased    = "table_released"
	EventDeliveryUpdate   = "delivery_update"
	EventDeliveryLocation = "delivery_location"
	EventStaffNotif       = "staff_notification"
	EventBoardSnapshot    = "board_snapshot"
)

// Message is one broadcast frame. Seq is a process-wide monotonic counter;
// clients keep the highest Seq they have applied and drop anything lower,
// so a late frame can never overwrite fresher state.
type Message struct {
	Event string      `json:"event"`
	Seq   uint64      `json:"seq"`
	Data  interface{} `json:"data"`
}

// KDSHub holds every connected client (kitchen, counter staff, admin,
// customer trackers) and broadcasts to all of them.
type KDSHub struct {
	clients map[*websocket.Conn]string // conn -> role
	mutex   sync.Mutex
	seq     atomic.Uint64
}

var kdsHub = KDSHub{
	clients: make(map[*websocket.Conn]string),
}

// RegisterClient adds a connection with its role.
func RegisterClient(conn *websocket.Conn, role string) {
	kdsHub.mutex.Lock()
	defer kdsHub.mutex.Unlock()
	kdsHub.clients[conn] = role
}

// UnregisterClient drops a connection and closes it.
func UnregisterClient(conn *websocket.Conn) {
	kdsHub.mutex.Lock()
	defer kdsHub.mutex.Unlock()
	delete(kdsHub.clients, conn)
	conn.Close()
}

// ClientCount returns the number of connected clients.
func ClientCount() int {
	kdsHub.mutex.Lock()
	defer kdsHub.mutex.Unlock()
	return len(kdsHub.clients)
}

// BroadcastSessionUpdate pushes a session change to every board.
func BroadcastSessionUpdate(session models.TableSession) {
	broadcast(Message{Event: EventSessionUpdate, Data: session})
}

// BroadcastNewTicket announces a freshly submitted ticket.
func BroadcastNewTicket(order models.SessionOrder) {
	broadcast(Message{Event: EventNewTicket, Data: order})
}

// BroadcastTicketUpdate pushes a ticket status/print change.
func BroadcastTicketUpdate(order models.SessionOrder) {
	broadcast(Message{Event: EventTicketUpdate, Data: order})
}

// BroadcastTicketPrinted announces a ticket hitting the printer.
func BroadcastTicketPrinted(order models.SessionOrder) {
	broadcast(Message{Event: EventTicketPrinted, Data: order})
}

// BroadcastBillRequested tells the counter a table wants to pay.
func BroadcastBillRequested(session models.TableSession) {
	broadcast(Message{Event: EventBillRequested, Data: session})
}

// BroadcastTableReleased announces a freed table.
func BroadcastTableReleased(session models.TableSession) {
	broadcast(Message{Event: EventTableReleased, Data: session})
}

// BroadcastDeliveryUpdate pushes a delivery order status change.
func BroadcastDeliveryUpdate(order models.DeliveryOrder) {
	broadcast(Message{Event: EventDeliveryUpdate, Data: order})
}

// BroadcastDeliveryLocation pushes a courier fix to trackers.
func BroadcastDeliveryLocation(location models.DeliveryLocation) {
	broadcast(Message{Event: EventDeliveryLocation, Data: location})
}

// BroadcastStaffNotification sends a plain text staff notice.
func BroadcastStaffNotification(text string) {
	broadcast(Message{Event: EventStaffNotif, Data: text})
}

// SendTo writes one frame to a single client. The frame takes the next
// sequence number, so snapshots and broadcasts stay comparable on the
// client side.
func SendTo(conn *websocket.Conn, msg Message) error {
	kdsHub.mutex.Lock()
	defer kdsHub.mutex.Unlock()

	msg.Seq = kdsHub.seq.Add(1)
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func broadcast(msg Message) {
	kdsHub.mutex.Lock()
	defer kdsHub.mutex.Unlock()

	msg.Seq = kdsHub.seq.Add(1)

	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling hub message: %v", err)
		return
	}

	for conn, role := range kdsHub.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.Printf("Error sending to %s client: %v", role, err)
			continue
		}
	}
}
