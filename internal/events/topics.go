package events

// Topics emitted by the checkout engine.
const (
	// TopicOrderFinalized fires once per finalized order.
	TopicOrderFinalized = "order.finalized"
	// TopicCouponRejected fires when a coupon application is refused.
	TopicCouponRejected = "coupon.rejected"
)
