package chain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/apperr"
)

type EventName string

const (
	EventOrganizationCreated     EventName = "OrganizationCreated"
	EventOrganizationModified    EventName = "OrganizationModified"
	EventServiceCreated          EventName = "ServiceCreated"
	EventServiceMetadataModified EventName = "ServiceMetadataModified"
)

var ErrUnknownEvent = errors.New("unknown registry event")

// Event is a decoded registry event. ServiceID is empty for organization events.
// Owner and Members are the registry's view of the organization after the
// transaction, as checksummed addresses, when the listener supplies them.
type Event struct {
	Name            EventName `json:"event"`
	OrgID           string    `json:"org_id"`
	ServiceID       string    `json:"service_id,omitempty"`
	MetadataURI     string    `json:"metadata_uri"`
	Owner           string    `json:"owner,omitempty"`
	Members         []string  `json:"members,omitempty"`
	TransactionHash string    `json:"transaction_hash"`
	BlockNumber     uint64    `json:"block_number"`
}

func (e *Event) IsServiceEvent() bool {
	return e.Name == EventServiceCreated || e.Name == EventServiceMetadataModified
}

type rawEvent struct {
	Event           EventName `json:"event"`
	TransactionHash string    `json:"transactionHash"`
	BlockNumber     uint64    `json:"blockNumber"`
	Args            struct {
		OrgID       string `json:"orgId"`
		ServiceID   string `json:"serviceId"`
		MetadataURI string   `json:"metadataURI"`
		Owner       string   `json:"owner"`
		Members     []string `json:"members"`
	} `json:"args"`
}

// DecodeEvent parses an indexer event envelope:
//
//	{"event": "ServiceCreated", "transactionHash": "0x..", "blockNumber": 1,
//	 "args": {"orgId": "0x..", "serviceId": "0x..", "metadataURI": "0x..",
//	          "owner": "0x..", "members": ["0x.."]}}
//
// Args may be plain strings or 0x hex of the contract's bytes32/bytes values.
// Owner and members are optional and only read for organization events.
func DecodeEvent(data []byte) (*Event, error) {
	var raw rawEvent
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "decode event", err)
	}

	switch raw.Event {
	case EventOrganizationCreated, EventOrganizationModified, EventServiceCreated, EventServiceMetadataModified:
	default:
		return nil, apperr.Wrap(apperr.KindValidation, "decode event", fmt.Errorf("%w: %q", ErrUnknownEvent, raw.Event))
	}

	ev := &Event{
		Name:            raw.Event,
		TransactionHash: raw.TransactionHash,
		BlockNumber:     raw.BlockNumber,
	}

	var err error
	if ev.OrgID, err = decodeBytes(raw.Args.OrgID); err != nil {
		return nil, apperr.Validation("decode event", "orgId: %v", err)
	}
	if ev.MetadataURI, err = decodeBytes(raw.Args.MetadataURI); err != nil {
		return nil, apperr.Validation("decode event", "metadataURI: %v", err)
	}
	if ev.IsServiceEvent() {
		if ev.ServiceID, err = decodeBytes(raw.Args.ServiceID); err != nil {
			return nil, apperr.Validation("decode event", "serviceId: %v", err)
		}
		if ev.ServiceID == "" {
			return nil, apperr.Validation("decode event", "%s without serviceId", ev.Name)
		}
	}
	if ev.OrgID == "" {
		return nil, apperr.Validation("decode event", "%s without orgId", ev.Name)
	}
	if !ev.IsServiceEvent() {
		if ev.Owner, err = decodeAddress(raw.Args.Owner); err != nil {
			return nil, apperr.Validation("decode event", "owner: %v", err)
		}
		for _, m := range raw.Args.Members {
			addr, err := decodeAddress(m)
			if err != nil || addr == "" {
				return nil, apperr.Validation("decode event", "member %q is not an address", m)
			}
			ev.Members = append(ev.Members, addr)
		}
	}

	return ev, nil
}

// decodeAddress checksums a hex address. An empty value stays empty.
func decodeAddress(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("%q is not an address", s)
	}
	return common.HexToAddress(s).Hex(), nil
}

// decodeBytes turns a 0x hex value into text, dropping the zero padding of
// fixed size contract values. Anything else is taken as text already.
func decodeBytes(s string) (string, error) {
	if !strings.HasPrefix(s, "0x") {
		return s, nil
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return "", err
	}
	return string(bytes.TrimRight(b, "\x00")), nil
}
