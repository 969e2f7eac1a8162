package notifications

import "strings"

// Bit is one flag of a notification status.
type Bit uint8

const (
	// BitEmail means the recipient wants the event emailed. Decided at creation.
	BitEmail Bit = 1 << iota
	// BitSent means the notification went out in a digest email.
	BitSent
	// BitRead means the recipient has seen the referenced content.
	BitRead
	// BitRemoved means the referenced content no longer exists.
	BitRemoved

	bitMask = BitEmail | BitSent | BitRead | BitRemoved
)

func (b Bit) String() string {
	names := make([]string, 0, 4)
	for _, f := range []struct {
		bit  Bit
		name string
	}{
		{BitEmail, "email"},
		{BitSent, "sent"},
		{BitRead, "read"},
		{BitRemoved, "removed"},
	} {
		if b&f.bit != 0 {
			names = append(names, f.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Status is the bit set of a notification. Bits can be added but never
// cleared, so every update is idempotent and commutative.
type Status struct {
	bits Bit
}

// StatusFromBits restores a persisted status. Unknown bits are dropped.
func StatusFromBits(bits uint8) Status {
	return Status{bits: Bit(bits) & bitMask}
}

// With returns the status with b added.
func (s Status) With(b Bit) Status {
	return Status{bits: s.bits | (b & bitMask)}
}

// Has reports whether every bit of b is set.
func (s Status) Has(b Bit) bool {
	return b != 0 && s.bits&b == b
}

// HasAny reports whether at least one bit of b is set.
func (s Status) HasAny(b Bit) bool {
	return s.bits&b != 0
}

// Bits exposes the raw value for persistence.
func (s Status) Bits() uint8 {
	return uint8(s.bits)
}

// Derived collapses the bit set to the status shown to users.
// SENT wins over everything, so SENT without EMAIL is still Sent: an email
// went out, whatever the preference said at creation.
func (s Status) Derived() DerivedStatus {
	switch {
	case s.Has(BitSent):
		return StatusSent
	case !s.Has(BitEmail):
		return StatusNoEmail
	case s.HasAny(BitRead | BitRemoved):
		return StatusCancelled
	default:
		return StatusPending
	}
}

func (s Status) String() string {
	return s.bits.String()
}

// DerivedStatus is the email state of a notification.
type DerivedStatus string

const (
	StatusNoEmail   DerivedStatus = "no_email"
	StatusPending   DerivedStatus = "pending"
	StatusCancelled DerivedStatus = "cancelled"
	StatusSent      DerivedStatus = "sent"
)
