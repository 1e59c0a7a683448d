package events

// Topic constants for domain events emitted by the platform.
const (
	TopicOrderPaid              = "order.paid"
	TopicCouponThresholdCrossed = "coupon.threshold_crossed"
	TopicCouponIssued           = "coupon.issued"
)
