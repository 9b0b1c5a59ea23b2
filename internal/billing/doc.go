// Package billing handles paid-plan checkout through Razorpay.
//
// Checkout is a two-step flow. CreateOrder registers an order with
// Razorpay and persists a pending payment record; the browser completes
// the payment with Razorpay's widget. VerifyPayment then validates the
// returned HMAC signature, marks the payment captured, and activates
// the subscription for the current calendar month (UTC).
package billing
