package subscription

// Key identifies a subscription: a stream and the subscriber reading it.
//
// An empty SubscriberID identifies the default subscriber of the stream.
type Key struct {
	Stream       string
	SubscriberID string
}

// IsDefault reports whether the Key refers to the default subscriber of the stream.
func (k Key) IsDefault() bool { return k.SubscriberID == "" }

func (k Key) String() string {
	if k.IsDefault() {
		return k.Stream
	}

	return k.Stream + "/" + k.SubscriberID
}
