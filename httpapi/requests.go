package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const maxJSONBodyBytes = 64 << 10

var errMissingField = errors.New("missing required field")

// otpCode accepts the code as a JSON string or number.
type otpCode string

func (c *otpCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = otpCode(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseUint(n.String(), 10, 64); err != nil {
		return errors.New("otp must be a non-negative integer")
	}
	*c = otpCode(n.String())
	return nil
}

// date accepts YYYY-MM-DD or RFC 3339.
type date time.Time

func (d *date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*d = date{}
		return nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		*d = date(t)
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*d = date(t)
	return nil
}

type emailLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *emailLoginRequest) validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" || r.Password == "" {
		return errMissingField
	}
	return nil
}

type otpLoginRequest struct {
	Phone string  `json:"phone"`
	OTP   otpCode `json:"otp"`
}

func (r *otpLoginRequest) validate() error {
	r.Phone = strings.TrimSpace(r.Phone)
	if r.Phone == "" || r.OTP == "" {
		return errMissingField
	}
	return nil
}

type signupRequest struct {
	Username  string  `json:"username"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	DOB       date    `json:"dob"`
	School    string  `json:"school"`
	Address   string  `json:"address"`
	District  string  `json:"district"`
	OTP       otpCode `json:"otp"`
}

func (r *signupRequest) validate() error {
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" || r.OTP == "" || strings.TrimSpace(r.FirstName) == "" || strings.TrimSpace(r.LastName) == "" {
		return errMissingField
	}
	return nil
}

type otpRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Register    bool   `json:"register"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
}

func (r *otpRequest) validate() error {
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	if r.PhoneNumber == "" {
		return errMissingField
	}
	if r.Register && (strings.TrimSpace(r.FirstName) == "" || strings.TrimSpace(r.LastName) == "") {
		return errMissingField
	}
	return nil
}

type validator interface {
	validate() error
}

// decode reads a size-limited JSON body into dst and validates it. On
// failure it writes a 400 and returns false.
func decode(w http.ResponseWriter, r *http.Request, dst validator) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, CodeBadRequest)
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeMessage(w, http.StatusBadRequest, CodeBadRequest)
		return false
	}
	if err := dst.validate(); err != nil {
		writeMessage(w, http.StatusBadRequest, CodeBadRequest)
		return false
	}
	return true
}
