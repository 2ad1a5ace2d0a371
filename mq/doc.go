// Package mq carries the service's message-queue traffic over NATS.
//
//   - [Messenger] implements otpauth.Messenger with a sendTextMessage
//     request-reply to the notification service.
//   - [Validator] answers validateToken requests from other services with
//     the decoded access-token claims.
//
// All payloads are JSON.
//
// # What this package must NOT do
//
//   - Decide OTP or token policy; it only moves bytes to and from the Engine.
package mq
