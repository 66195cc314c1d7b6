// Package packet implements the subset of the DNS wire format needed to ask an
// upstream resolver for TXT records and read its answer.
package packet

import (
	"errors"
)

type QueryType uint16

const (
	UNKNOWN QueryType = 0
	A       QueryType = 1
	NS      QueryType = 2
	CNAME   QueryType = 5
	SOA     QueryType = 6
	TXT     QueryType = 16
	AAAA    QueryType = 28
	OPT     QueryType = 41
)

// Response codes.
const (
	RcodeNoError  uint8 = 0
	RcodeFormErr  uint8 = 1
	RcodeServFail uint8 = 2
	RcodeNXDomain uint8 = 3
	RcodeNotImp   uint8 = 4
	RcodeRefused  uint8 = 5
)

const ClassIN uint16 = 1

var ErrMalformedTXT = errors.New("malformed TXT rdata")

type DnsHeader struct {
	ID                  uint16
	RecursionDesired    bool
	TruncatedMessage    bool
	AuthoritativeAnswer bool
	Opcode              uint8
	Response            bool
	ResCode             uint8
	CheckingDisabled    bool
	AuthedData          bool
	Z                   bool
	RecursionAvailable  bool

	Questions            uint16
	Answers              uint16
	AuthoritativeEntries uint16
	ResourceEntries      uint16
}

func (h *DnsHeader) Read(buffer *BytePacketBuffer) error {
	var err error
	if h.ID, err = buffer.Readu16(); err != nil {
		return err
	}
	flags, err := buffer.Readu16()
	if err != nil {
		return err
	}

	a := uint8(flags >> 8)
	b := uint8(flags & 0xFF)

	h.RecursionDesired = (a & (1 << 0)) > 0
	h.TruncatedMessage = (a & (1 << 1)) > 0
	h.AuthoritativeAnswer = (a & (1 << 2)) > 0
	h.Opcode = (a >> 3) & 0x0F
	h.Response = (a & (1 << 7)) > 0

	h.ResCode = b & 0x0F
	h.CheckingDisabled = (b & (1 << 4)) > 0
	h.AuthedData = (b & (1 << 5)) > 0
	h.Z = (b & (1 << 6)) > 0
	h.RecursionAvailable = (b & (1 << 7)) > 0

	if h.Questions, err = buffer.Readu16(); err != nil {
		return err
	}
	if h.Answers, err = buffer.Readu16(); err != nil {
		return err
	}
	if h.AuthoritativeEntries, err = buffer.Readu16(); err != nil {
		return err
	}
	h.ResourceEntries, err = buffer.Readu16()
	return err
}

func (h *DnsHeader) Write(buffer *BytePacketBuffer) error {
	if err := buffer.Writeu16(h.ID); err != nil {
		return err
	}

	var flags uint16
	if h.Response {
		flags |= 1 << 15
	}
	flags |= uint16(h.Opcode&0x0F) << 11
	if h.AuthoritativeAnswer {
		flags |= 1 << 10
	}
	if h.TruncatedMessage {
		flags |= 1 << 9
	}
	if h.RecursionDesired {
		flags |= 1 << 8
	}
	if h.RecursionAvailable {
		flags |= 1 << 7
	}
	if h.Z {
		flags |= 1 << 6
	}
	if h.AuthedData {
		flags |= 1 << 5
	}
	if h.CheckingDisabled {
		flags |= 1 << 4
	}
	flags |= uint16(h.ResCode & 0x0F)

	for _, v := range []uint16{flags, h.Questions, h.Answers, h.AuthoritativeEntries, h.ResourceEntries} {
		if err := buffer.Writeu16(v); err != nil {
			return err
		}
	}
	return nil
}

type DnsQuestion struct {
	Name  string
	QType QueryType
}

func NewDnsQuestion(name string, qtype QueryType) *DnsQuestion {
	return &DnsQuestion{Name: name, QType: qtype}
}

func (q *DnsQuestion) Read(buffer *BytePacketBuffer) error {
	var err error
	if q.Name, err = buffer.ReadName(); err != nil {
		return err
	}
	qtype, err := buffer.Readu16()
	if err != nil {
		return err
	}
	q.QType = QueryType(qtype)
	_, err = buffer.Readu16() // QCLASS
	return err
}

func (q *DnsQuestion) Write(buffer *BytePacketBuffer) error {
	if err := buffer.WriteName(q.Name); err != nil {
		return err
	}
	if err := buffer.Writeu16(uint16(q.QType)); err != nil {
		return err
	}
	return buffer.Writeu16(ClassIN)
}

// DnsRecord is a resource record. Only TXT rdata is decoded; other types keep
// their raw rdata in Data.
type DnsRecord struct {
	Name  string
	Type  QueryType
	Class uint16
	TTL   uint32
	Data  []byte
	// Txt holds the character-strings of a TXT record in wire order.
	Txt []string
}

// TxtValue joins the character-strings of a TXT record into the logical value.
func (r *DnsRecord) TxtValue() string {
	n := 0
	for _, s := range r.Txt {
		n += len(s)
	}
	out := make([]byte, 0, n)
	for _, s := range r.Txt {
		out = append(out, s...)
	}
	return string(out)
}

func (r *DnsRecord) Read(buffer *BytePacketBuffer) error {
	var err error
	if r.Name, err = buffer.ReadName(); err != nil {
		return err
	}
	typeVal, err := buffer.Readu16()
	if err != nil {
		return err
	}
	r.Type = QueryType(typeVal)
	if r.Class, err = buffer.Readu16(); err != nil {
		return err
	}
	if r.TTL, err = buffer.Readu32(); err != nil {
		return err
	}
	dataLen, err := buffer.Readu16()
	if err != nil {
		return err
	}

	start := buffer.Position()
	r.Data, err = buffer.ReadRange(start, int(dataLen))
	if err != nil {
		return err
	}
	if r.Type == TXT {
		if r.Txt, err = parseTXT(r.Data); err != nil {
			return err
		}
	}
	return buffer.Step(int(dataLen))
}

func parseTXT(rdata []byte) ([]string, error) {
	var out []string
	for i := 0; i < len(rdata); {
		l := int(rdata[i])
		i++
		if i+l > len(rdata) {
			return nil, ErrMalformedTXT
		}
		out = append(out, string(rdata[i:i+l]))
		i += l
	}
	return out, nil
}

func (r *DnsRecord) Write(buffer *BytePacketBuffer) error {
	if err := buffer.WriteName(r.Name); err != nil {
		return err
	}
	if err := buffer.Writeu16(uint16(r.Type)); err != nil {
		return err
	}
	if err := buffer.Writeu16(r.Class); err != nil {
		return err
	}
	if err := buffer.Writeu32(r.TTL); err != nil {
		return err
	}

	data := r.Data
	if r.Type == TXT && len(r.Txt) > 0 {
		data = nil
		for _, s := range r.Txt {
			if len(s) > 255 {
				return ErrMalformedTXT
			}
			data = append(data, byte(len(s)))
			data = append(data, s...)
		}
	}
	if err := buffer.Writeu16(uint16(len(data))); err != nil {
		return err
	}
	return buffer.WriteBytes(data)
}

type DnsPacket struct {
	Header      DnsHeader
	Questions   []DnsQuestion
	Answers     []DnsRecord
	Authorities []DnsRecord
	Resources   []DnsRecord
}

func NewDnsPacket() *DnsPacket {
	return &DnsPacket{}
}

func (p *DnsPacket) FromBuffer(buffer *BytePacketBuffer) error {
	if err := p.Header.Read(buffer); err != nil {
		return err
	}
	for i := 0; i < int(p.Header.Questions); i++ {
		var q DnsQuestion
		if err := q.Read(buffer); err != nil {
			return err
		}
		p.Questions = append(p.Questions, q)
	}
	sections := []struct {
		n   uint16
		dst *[]DnsRecord
	}{
		{p.Header.Answers, &p.Answers},
		{p.Header.AuthoritativeEntries, &p.Authorities},
		{p.Header.ResourceEntries, &p.Resources},
	}
	for _, s := range sections {
		for i := 0; i < int(s.n); i++ {
			var r DnsRecord
			if err := r.Read(buffer); err != nil {
				return err
			}
			*s.dst = append(*s.dst, r)
		}
	}
	return nil
}

func (p *DnsPacket) Write(buffer *BytePacketBuffer) error {
	p.Header.Questions = uint16(len(p.Questions))
	p.Header.Answers = uint16(len(p.Answers))
	p.Header.AuthoritativeEntries = uint16(len(p.Authorities))
	p.Header.ResourceEntries = uint16(len(p.Resources))

	if err := p.Header.Write(buffer); err != nil {
		return err
	}
	for _, q := range p.Questions {
		if err := q.Write(buffer); err != nil {
			return err
		}
	}
	for _, section := range [][]DnsRecord{p.Answers, p.Authorities, p.Resources} {
		for i := range section {
			if err := section[i].Write(buffer); err != nil {
				return err
			}
		}
	}
	return nil
}
