package table

// Out is one outbound wire message the dispatcher must enqueue on a
// session's send channel. To lists explicit recipients in the order
// they must be enqueued (spec §5: "broadcast to N sessions is emitted
// in seat order").
type Out struct {
	To     []string
	Method string
	Payload any
}

func unicast(to, method string, payload any) Out {
	return Out{To: []string{to}, Method: method, Payload: payload}
}

func multicast(to []string, method string, payload any) Out {
	return Out{To: to, Method: method, Payload: payload}
}
