package rkeeper

import (
	"encoding/xml"

	"github.com/rkbridge/backend/internal/domain/pos"
)

// ---------------------------------------------------------------------------
// Request documents
// ---------------------------------------------------------------------------

// Protocol command names
const (
	CmdGetRefData       = "GetRefData"
	CmdGetOrderMenu     = "GetOrderMenu"
	CmdCreateOrder      = "CreateOrder"
	CmdSaveOrder        = "SaveOrder"
	CmdGetLicenseSeqNum = "GetXMLLicenseInstanceSeqNumber"
)

// dishReferenceProps are the MenuItems properties requested from GetRefData
var dishReferenceProps = []string{
	"ItemIdent", "Code", "Name", "Status", "MainParentIdent", "Price",
	"Quantity", "Available", "RecipeText", "RecipeIngredients", "CategPath",
}

// refDataQuery is <RK7Query><RK7Command CMD="GetRefData" .../></RK7Query>
type refDataQuery struct {
	XMLName xml.Name       `xml:"RK7Query"`
	Command refDataCommand `xml:"RK7Command"`
}

type refDataCommand struct {
	CMD        string     `xml:"CMD,attr"`
	RefName    string     `xml:"RefName,attr"`
	OnlyActive string     `xml:"onlyActive,attr"`
	Props      []propElem `xml:"PROPFILTER>PROP"`
	Filter     eqElem     `xml:"FILTER>EQ"`
}

type propElem struct {
	Name string `xml:"name,attr"`
}

type eqElem struct {
	FieldName string `xml:"FieldName,attr"`
	Value     string `xml:"Value,attr"`
}

// cmdQuery is <RK7Query><RK7CMD CMD="..."/></RK7Query>. Field order
// matches the element order the XML interface expects.
type cmdQuery struct {
	XMLName xml.Name `xml:"RK7Query"`
	CMD     cmdElem  `xml:"RK7CMD"`
}

type cmdElem struct {
	CMD     string       `xml:"CMD,attr"`
	License *licenseElem `xml:"LicenseInfo,omitempty"`
	Station *codeElem    `xml:"Station,omitempty"`
	Order   *orderElem   `xml:"Order,omitempty"`
	Session *sessionElem `xml:"Session,omitempty"`
}

type licenseElem struct {
	Anchor   string       `xml:"anchor,attr"`
	Token    string       `xml:"licenseToken,attr"`
	Instance instanceElem `xml:"LicenseInstance"`
}

type instanceElem struct {
	GUID      string `xml:"guid,attr"`
	SeqNumber string `xml:"seqNumber,attr,omitempty"`
}

type codeElem struct {
	Code string `xml:"code,attr"`
}

type idElem struct {
	ID string `xml:"id,attr"`
}

type orderElem struct {
	GUID              string     `xml:"guid,attr,omitempty"`
	PersistentComment string     `xml:"persistentComment,attr,omitempty"`
	Table             *tableElem `xml:"Table,omitempty"`
	Station           *codeElem  `xml:"Station,omitempty"`
	GuestType         *idElem    `xml:"GuestType,omitempty"`
	Waiter            *codeElem  `xml:"Waiter,omitempty"`
}

type tableElem struct {
	Code    string    `xml:"code,attr,omitempty"`
	Station *codeElem `xml:"Station,omitempty"`
}

type sessionElem struct {
	Station codeElem   `xml:"Station"`
	Dishes  []dishElem `xml:"Dish"`
}

type dishElem struct {
	ID       string `xml:"id,attr"`
	Quantity string `xml:"quantity,attr"`
	Comment  string `xml:"comment,attr,omitempty"`
}

// ---------------------------------------------------------------------------
// Response records
// ---------------------------------------------------------------------------

// Response attribute names shared by every RK7 result document
const (
	attrStatus    = "Status"
	attrErrorText = "ErrorText"
	attrErrorCode = "RK7ErrorN"
)

// dishReferenceActive is the Status value of active reference items
const dishReferenceActive = "rsActive"

// StationMenu is the parsed GetOrderMenu response
type StationMenu struct {
	Status    string
	ErrorText string
	ErrorCode string
	Items     []pos.SnapshotItem
}

// CreateOrderResult is the parsed CreateOrder response
type CreateOrderResult struct {
	Status    string
	ErrorText string
	ErrorCode string
	OrderGUID string
}

// IsOK returns true if the POS accepted the command
func (r CreateOrderResult) IsOK() bool {
	return r.Status == pos.StatusOK
}
