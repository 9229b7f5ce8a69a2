package session

// Client is the two-step subscription handshake: a consumer
// sends a Client over the session's subscribe-request channel, and the
// session — from its single owning goroutine — calls Accept with a fresh
// Receiver once it has observed the request. This guarantees the session
// never drops an event between "I want to subscribe" and "here is your
// Receiver": the Receiver is always handed back synchronously from the
// same goroutine that calls Broadcaster.Subscribe, so no Send can happen
// in between from the consumer's point of view.
type Client struct {
	acceptCh chan *Receiver
}

// NewClient creates a pending subscription request.
func NewClient() *Client {
	return &Client{acceptCh: make(chan *Receiver, 1)}
}

// Accept is called by the session owner to complete the handshake.
func (c *Client) Accept(r *Receiver) {
	c.acceptCh <- r
}

// Wait blocks until Accept has been called and returns the Receiver.
func (c *Client) Wait() *Receiver {
	return <-c.acceptCh
}
