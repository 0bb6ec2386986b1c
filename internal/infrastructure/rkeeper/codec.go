package rkeeper

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/rkbridge/backend/internal/domain/pos"
)

// ParseError reports a response that is not well-formed or lacks a
// required element or attribute.
type ParseError struct {
	Command string
	Reason  string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", pos.ErrParse.Error(), e.Command, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", pos.ErrParse.Error(), e.Command, e.Reason)
}

// Unwrap exposes pos.ErrParse and the underlying cause
func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{pos.ErrParse}
	}
	return []error{pos.ErrParse, e.Err}
}

// ===========================================================================
// Request builders
// ===========================================================================

// BuildDishReferenceQuery requests the active dish reference table.
func BuildDishReferenceQuery() ([]byte, error) {
	props := make([]propElem, 0, len(dishReferenceProps))
	for _, name := range dishReferenceProps {
		props = append(props, propElem{Name: name})
	}
	return marshalDocument(refDataQuery{
		Command: refDataCommand{
			CMD:        CmdGetRefData,
			RefName:    "MenuItems",
			OnlyActive: "1",
			Props:      props,
			Filter:     eqElem{FieldName: "ItemKind", Value: "1"},
		},
	})
}

// BuildStationMenuQuery requests the live order menu of a station.
func BuildStationMenuQuery(stationCode int) ([]byte, error) {
	code := strconv.Itoa(stationCode)
	return marshalDocument(cmdQuery{
		CMD: cmdElem{
			CMD:     CmdGetOrderMenu,
			Station: &codeElem{Code: code},
			Order: &orderElem{
				Table: &tableElem{Station: &codeElem{Code: code}},
			},
		},
	})
}

// BuildCreateOrderQuery opens an order. Attribute values, including the
// free-text comment, are entity-escaped by the encoder.
func BuildCreateOrderQuery(cmd pos.CreateOrderCommand) ([]byte, error) {
	order := &orderElem{
		PersistentComment: cmd.Comment,
		Table:             &tableElem{Code: strconv.Itoa(cmd.TableCode)},
		Station:           &codeElem{Code: strconv.Itoa(cmd.StationCode)},
		GuestType:         &idElem{ID: "1"},
	}
	if cmd.WaiterCode != "" {
		order.Waiter = &codeElem{Code: cmd.WaiterCode}
	}
	return marshalDocument(cmdQuery{CMD: cmdElem{CMD: CmdCreateOrder, Order: order}})
}

// BuildSaveOrderQuery adds dishes to an order. Quantities are sent in
// thousandths, the POS convention for fractional portions.
func BuildSaveOrderQuery(cmd pos.SaveOrderCommand) ([]byte, error) {
	if cmd.OrderGUID == "" {
		return nil, pos.ErrMissingOrderGUID
	}
	if len(cmd.Dishes) == 0 {
		return nil, pos.ErrNoDishLines
	}

	dishes := make([]dishElem, 0, len(cmd.Dishes))
	for _, d := range cmd.Dishes {
		dishes = append(dishes, dishElem{
			ID:       d.RKeeperID,
			Quantity: strconv.Itoa(d.Quantity * 1000),
			Comment:  d.Comment,
		})
	}

	elem := cmdElem{
		CMD:   CmdSaveOrder,
		Order: &orderElem{GUID: cmd.OrderGUID},
		Session: &sessionElem{
			Station: codeElem{Code: strconv.Itoa(cmd.StationCode)},
			Dishes:  dishes,
		},
	}
	if cmd.License != nil && cmd.License.Configured() {
		elem.License = &licenseElem{
			Anchor: cmd.License.Anchor,
			Token:  cmd.License.Token,
			Instance: instanceElem{
				GUID:      cmd.License.InstanceGUID,
				SeqNumber: strconv.FormatInt(cmd.License.SeqNumber, 10),
			},
		}
	}
	return marshalDocument(cmdQuery{CMD: elem})
}

// BuildGetLicenseSeqQuery asks for the authoritative sequence number of a
// license instance.
func BuildGetLicenseSeqQuery(creds pos.LicenseCredentials) ([]byte, error) {
	if !creds.Configured() {
		return nil, pos.ErrLicenseNotConfigured
	}
	return marshalDocument(cmdQuery{
		CMD: cmdElem{
			CMD: CmdGetLicenseSeqNum,
			License: &licenseElem{
				Anchor:   creds.Anchor,
				Token:    creds.Token,
				Instance: instanceElem{GUID: creds.InstanceGUID},
			},
		},
	})
}

func marshalDocument(v any) ([]byte, error) {
	body, err := xml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("rkeeper: failed to encode request: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// ===========================================================================
// Response parsers
// ===========================================================================

// ParseDishReferenceResponse keeps active items keyed by ItemIdent.
func ParseDishReferenceResponse(data []byte) (map[string]pos.DishReference, error) {
	refs := make(map[string]pos.DishReference)
	root, err := scanDocument(CmdGetRefData, data, func(el element) {
		if el.Depth == 0 || el.Name != "Item" || el.attr("Status") != dishReferenceActive {
			return
		}
		ident := el.attr("ItemIdent")
		if ident == "" {
			return
		}
		refs[ident] = pos.DishReference{
			Name:     el.attrOr("Name", pos.UnnamedDish),
			Code:     el.attrOr("Code", pos.UnknownDishCode),
			Recipe:   el.attr("RecipeText"),
			Category: pos.CategoryFromPath(el.attr("CategPath")),
		}
	})
	if err != nil {
		return nil, err
	}
	if status, ok := root.Attrs[attrStatus]; ok && status != pos.StatusOK {
		return nil, root.statusError(CmdGetRefData)
	}
	return refs, nil
}

// ParseStationMenuResponse reads Dishes/Item entries. A non-Ok status is
// returned in the result and as a *pos.ProtocolStatusError.
func ParseStationMenuResponse(data []byte) (StationMenu, error) {
	var (
		items   []pos.SnapshotItem
		itemErr error
	)
	menuRoot, err := scanDocument(CmdGetOrderMenu, data, func(el element) {
		if itemErr != nil || el.Name != "Item" || el.Parent != "Dishes" {
			return
		}
		item, err := snapshotItemFrom(el)
		if err != nil {
			itemErr = err
			return
		}
		items = append(items, item)
	})
	if err != nil {
		return StationMenu{}, err
	}

	menu := StationMenu{
		Status:    menuRoot.attr(attrStatus),
		ErrorText: menuRoot.attr(attrErrorText),
		ErrorCode: menuRoot.attr(attrErrorCode),
	}
	if menu.Status != pos.StatusOK {
		return menu, menuRoot.statusError(CmdGetOrderMenu)
	}
	if itemErr != nil {
		return menu, itemErr
	}
	menu.Items = items
	return menu, nil
}

func snapshotItemFrom(el element) (pos.SnapshotItem, error) {
	ident := el.attr("Ident")
	if ident == "" {
		return pos.SnapshotItem{}, &ParseError{Command: CmdGetOrderMenu, Reason: "dish item without Ident"}
	}
	price, err := parseWhole(el.attr("Price"))
	if err != nil {
		return pos.SnapshotItem{}, &ParseError{Command: CmdGetOrderMenu, Reason: "invalid Price of item " + ident, Err: err}
	}
	qty, err := parseWhole(el.attr("Quantity"))
	if err != nil {
		return pos.SnapshotItem{}, &ParseError{Command: CmdGetOrderMenu, Reason: "invalid Quantity of item " + ident, Err: err}
	}
	return pos.SnapshotItem{RKeeperID: ident, PriceMinor: price, Quantity: qty}, nil
}

// parseWhole reads an integer attribute that the POS may render with a
// fractional part. Empty means zero.
func parseWhole(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.IntPart(), nil
}

// ParseCreateOrderResponse extracts status, error fields and the order GUID.
// Only the root guid attribute identifies the new order; a GUID found on a
// nested element is not an acknowledgment.
func ParseCreateOrderResponse(data []byte) (CreateOrderResult, error) {
	root, err := scanDocument(CmdCreateOrder, data, nil)
	if err != nil {
		return CreateOrderResult{}, err
	}
	return CreateOrderResult{
		Status:    root.attr(attrStatus),
		ErrorText: root.attr(attrErrorText),
		ErrorCode: root.attr(attrErrorCode),
		OrderGUID: root.attr("guid"),
	}, nil
}

// ParseSaveOrderResponse extracts status and error fields.
func ParseSaveOrderResponse(data []byte) (pos.SaveOrderResult, error) {
	root, err := scanDocument(CmdSaveOrder, data, nil)
	if err != nil {
		return pos.SaveOrderResult{}, err
	}
	return pos.SaveOrderResult{
		Status:    root.attr(attrStatus),
		ErrorCode: root.attr(attrErrorCode),
		ErrorText: root.attr(attrErrorText),
	}, nil
}

// ParseGetLicenseSeqResponse reads LicenseInstance/@seqNumber.
func ParseGetLicenseSeqResponse(data []byte) (int64, error) {
	var (
		found  bool
		seqRaw string
	)
	root, err := scanDocument(CmdGetLicenseSeqNum, data, func(el element) {
		if !found && el.Name == "LicenseInstance" {
			found = true
			seqRaw = el.attr("seqNumber")
		}
	})
	if err != nil {
		return 0, err
	}
	if root.attr(attrStatus) != pos.StatusOK {
		return 0, root.statusError(CmdGetLicenseSeqNum)
	}
	if !found {
		return 0, &ParseError{Command: CmdGetLicenseSeqNum, Reason: "LicenseInstance element not found"}
	}
	if seqRaw == "" {
		return 0, &ParseError{Command: CmdGetLicenseSeqNum, Reason: "seqNumber attribute not found"}
	}
	seq, err := strconv.ParseInt(seqRaw, 10, 64)
	if err != nil {
		return 0, &ParseError{Command: CmdGetLicenseSeqNum, Reason: "invalid seqNumber", Err: err}
	}
	return seq, nil
}

// ---------------------------------------------------------------------------
// Document scanning
// ---------------------------------------------------------------------------

// element is a start tag seen while scanning a response.
type element struct {
	Name   string
	Parent string
	Depth  int
	Attrs  map[string]string
}

func (e element) attr(name string) string {
	return e.Attrs[name]
}

func (e element) attrOr(name, fallback string) string {
	if v := e.Attrs[name]; v != "" {
		return v
	}
	return fallback
}

func (e element) statusError(command string) *pos.ProtocolStatusError {
	text := e.attr(attrErrorText)
	if text == "" {
		text = "unknown error"
	}
	return &pos.ProtocolStatusError{
		Command: command,
		Status:  e.attr(attrStatus),
		Code:    e.attr(attrErrorCode),
		Text:    text,
	}
}

// scanDocument walks every start tag and returns the root element.
func scanDocument(command string, data []byte, visit func(element)) (element, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charsetReader

	var (
		root  element
		seen  bool
		stack []string
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return element{}, &ParseError{Command: command, Reason: "malformed XML", Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := element{Name: t.Name.Local, Depth: len(stack), Attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				el.Attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				el.Parent = stack[len(stack)-1]
			}
			if !seen {
				root, seen = el, true
			}
			stack = append(stack, el.Name)
			if visit != nil {
				visit(el)
			}
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		}
	}
	if !seen {
		return element{}, &ParseError{Command: command, Reason: "empty response document"}
	}
	return root, nil
}

// charsetReader decodes responses declared in a legacy encoding such as
// windows-1251.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}
