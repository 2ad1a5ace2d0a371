// Package otp stores one-time passcodes and their issuance counters in Redis.
//
//	otp:{phone}           -> code   (TTL = OTP lifetime)
//	otp:requests:{phone}  -> count  (TTL = rate-limit window, reset per issue)
//
// Issuing always overwrites the previous code. Verification is an exact
// string comparison and consumes the code on success. Enforcing the request
// quota is the caller's job: read [Store.RequestCount] before calling
// [Store.Issue].
package otp
