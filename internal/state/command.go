package state

import (
	"encoding/json"
	"fmt"

	"github.com/kinshukkush/smartsplit/internal/ledger"
)

// Kind names a command on the wire.
type Kind string

const (
	KindAddUser        Kind = "addUser"
	KindUpdateUser     Kind = "updateUser"
	KindDeactivateUser Kind = "deactivateUser"

	KindAddExpense    Kind = "addExpense"
	KindUpdateExpense Kind = "updateExpense"
	KindDeleteExpense Kind = "deleteExpense"
	KindSettleExpense Kind = "settleExpense"

	KindAddGroup    Kind = "addGroup"
	KindUpdateGroup Kind = "updateGroup"
	KindDeleteGroup Kind = "deleteGroup"

	KindAddPayment    Kind = "addPayment"
	KindDeletePayment Kind = "deletePayment"

	KindAddSettlement        Kind = "addSettlement"
	KindTransitionSettlement Kind = "transitionSettlement"
	KindDeleteSettlement     Kind = "deleteSettlement"

	KindAddReminder    Kind = "addReminder"
	KindUpdateReminder Kind = "updateReminder"
	KindDeleteReminder Kind = "deleteReminder"

	KindAddCategory    Kind = "addCategory"
	KindUpdateCategory Kind = "updateCategory"
	KindDeleteCategory Kind = "deleteCategory"

	KindSetCurrentUser Kind = "setCurrentUser"
	KindUpdateSettings Kind = "updateSettings"
	KindRestore        Kind = "restore"
)

// Command is one of the concrete command types of this package. The set is
// closed: Apply rejects anything else.
type Command interface {
	Kind() Kind
}

type (
	AddUser        struct{ ledger.User }
	UpdateUser     struct{ ledger.User }
	DeactivateUser struct {
		ID string `json:"id"`
	}

	// AddExpense carries the expense as entered. Participants declare their
	// split type and value; for itemized expenses they carry owed amounts.
	AddExpense    struct{ ledger.Expense }
	UpdateExpense struct{ ledger.Expense }
	DeleteExpense struct {
		ID string `json:"id"`
	}
	SettleExpense struct {
		ID string `json:"id"`
	}

	AddGroup    struct{ ledger.Group }
	UpdateGroup struct{ ledger.Group }
	DeleteGroup struct {
		ID string `json:"id"`
	}

	AddPayment    struct{ ledger.Payment }
	DeletePayment struct {
		ID string `json:"id"`
	}

	AddSettlement        struct{ ledger.Settlement }
	TransitionSettlement struct {
		ID     string                  `json:"id"`
		Status ledger.SettlementStatus `json:"status"`
		Note   string                  `json:"note,omitempty"`
	}
	DeleteSettlement struct {
		ID string `json:"id"`
	}

	AddReminder    struct{ ledger.Reminder }
	UpdateReminder struct{ ledger.Reminder }
	DeleteReminder struct {
		ID string `json:"id"`
	}

	AddCategory    struct{ ledger.Category }
	UpdateCategory struct{ ledger.Category }
	DeleteCategory struct {
		ID string `json:"id"`
	}

	SetCurrentUser struct {
		UserID string `json:"userId"`
	}
	UpdateSettings struct{ ledger.Settings }
	// Restore replaces the whole ledger, as after an import.
	Restore struct{ ledger.Snapshot }
)

func (AddUser) Kind() Kind        { return KindAddUser }
func (UpdateUser) Kind() Kind     { return KindUpdateUser }
func (DeactivateUser) Kind() Kind { return KindDeactivateUser }

func (AddExpense) Kind() Kind    { return KindAddExpense }
func (UpdateExpense) Kind() Kind { return KindUpdateExpense }
func (DeleteExpense) Kind() Kind { return KindDeleteExpense }
func (SettleExpense) Kind() Kind { return KindSettleExpense }

func (AddGroup) Kind() Kind    { return KindAddGroup }
func (UpdateGroup) Kind() Kind { return KindUpdateGroup }
func (DeleteGroup) Kind() Kind { return KindDeleteGroup }

func (AddPayment) Kind() Kind    { return KindAddPayment }
func (DeletePayment) Kind() Kind { return KindDeletePayment }

func (AddSettlement) Kind() Kind        { return KindAddSettlement }
func (TransitionSettlement) Kind() Kind { return KindTransitionSettlement }
func (DeleteSettlement) Kind() Kind     { return KindDeleteSettlement }

func (AddReminder) Kind() Kind    { return KindAddReminder }
func (UpdateReminder) Kind() Kind { return KindUpdateReminder }
func (DeleteReminder) Kind() Kind { return KindDeleteReminder }

func (AddCategory) Kind() Kind    { return KindAddCategory }
func (UpdateCategory) Kind() Kind { return KindUpdateCategory }
func (DeleteCategory) Kind() Kind { return KindDeleteCategory }

func (SetCurrentUser) Kind() Kind { return KindSetCurrentUser }
func (UpdateSettings) Kind() Kind { return KindUpdateSettings }
func (Restore) Kind() Kind        { return KindRestore }

// Envelope is the wire form of a command.
type Envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

var decoders = map[Kind]func(json.RawMessage) (Command, error){
	KindAddUser:              decode[AddUser],
	KindUpdateUser:           decode[UpdateUser],
	KindDeactivateUser:       decode[DeactivateUser],
	KindAddExpense:           decode[AddExpense],
	KindUpdateExpense:        decode[UpdateExpense],
	KindDeleteExpense:        decode[DeleteExpense],
	KindSettleExpense:        decode[SettleExpense],
	KindAddGroup:             decode[AddGroup],
	KindUpdateGroup:          decode[UpdateGroup],
	KindDeleteGroup:          decode[DeleteGroup],
	KindAddPayment:           decode[AddPayment],
	KindDeletePayment:        decode[DeletePayment],
	KindAddSettlement:        decode[AddSettlement],
	KindTransitionSettlement: decode[TransitionSettlement],
	KindDeleteSettlement:     decode[DeleteSettlement],
	KindAddReminder:          decode[AddReminder],
	KindUpdateReminder:       decode[UpdateReminder],
	KindDeleteReminder:       decode[DeleteReminder],
	KindAddCategory:          decode[AddCategory],
	KindUpdateCategory:       decode[UpdateCategory],
	KindDeleteCategory:       decode[DeleteCategory],
	KindSetCurrentUser:       decode[SetCurrentUser],
	KindUpdateSettings:       decode[UpdateSettings],
	KindRestore:              decode[Restore],
}

// Kinds returns every known command kind.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(decoders))
	for k := range decoders {
		kinds = append(kinds, k)
	}

	return kinds
}

// DecodeCommand parses a {"kind", "payload"} document. Unknown kinds and
// malformed payloads are validation errors.
func DecodeCommand(data []byte) (Command, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ledger.Invalid("", fmt.Sprintf("malformed command: %v", err))
	}

	return env.Command()
}

// Command returns the typed command held by the envelope.
func (e Envelope) Command() (Command, error) {
	dec, ok := decoders[e.Kind]
	if !ok {
		return nil, ledger.Invalid("kind", fmt.Sprintf("unknown command %q", e.Kind))
	}

	return dec(e.Payload)
}

// EncodeCommand is the inverse of DecodeCommand.
func EncodeCommand(cmd Command) ([]byte, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", cmd.Kind(), err)
	}

	return json.Marshal(Envelope{Kind: cmd.Kind(), Payload: payload})
}

func decode[T Command](payload json.RawMessage) (Command, error) {
	var cmd T
	if len(payload) == 0 || string(payload) == "null" {
		return nil, ledger.Invalid("payload", "payload is required")
	}

	if err := json.Unmarshal(payload, &cmd); err != nil {
		return nil, ledger.Invalid("payload", fmt.Sprintf("malformed %s payload: %v", cmd.Kind(), err))
	}

	return cmd, nil
}
