package converter

import (
	"strings"

	"github.com/ginjaninja78/dexreport/internal/normalize"
	"github.com/ginjaninja78/dexreport/internal/types"
)

// CancelledStatus marks appointments that never count towards a session.
const CancelledStatus = "Cancelled"

type appointmentKey struct {
	clientID string
	date     string
}

// AppointmentIndex finds the appointment behind a billing line by client and
// calendar date. Cancelled appointments and appointments without a usable
// date are not indexed. When several
// appointments share a key the earliest row in the ledger is used.
type AppointmentIndex struct {
	byKey map[appointmentKey]types.AppointmentRecord
}

// NewAppointmentIndex indexes the appointment ledger in source order.
func NewAppointmentIndex(appts []types.AppointmentRecord) *AppointmentIndex {
	idx := &AppointmentIndex{byKey: make(map[appointmentKey]types.AppointmentRecord, len(appts))}
	for _, a := range appts {
		if strings.EqualFold(strings.TrimSpace(a.Status), CancelledStatus) {
			continue
		}
		date, ok := normalize.DateKey(a.AppointmentDate)
		if !ok {
			continue
		}
		key := appointmentKey{clientID: normalize.Identifier(a.ClientID), date: date}
		if key.clientID == "" {
			continue
		}
		if _, exists := idx.byKey[key]; exists {
			continue
		}
		idx.byKey[key] = a
	}
	return idx
}

// Match returns the non-cancelled appointment of clientID on date.
// date may be any format ParseDate understands, including an Excel serial.
// A missing or unparseable date is always a miss.
func (idx *AppointmentIndex) Match(clientID, date string) (types.AppointmentRecord, bool) {
	if idx == nil {
		return types.AppointmentRecord{}, false
	}
	day, ok := normalize.DateKey(date)
	if !ok {
		return types.AppointmentRecord{}, false
	}
	a, ok := idx.byKey[appointmentKey{clientID: normalize.Identifier(clientID), date: day}]
	return a, ok
}

// Len returns the number of indexed appointments.
func (idx *AppointmentIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.byKey)
}
