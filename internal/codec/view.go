package codec

import "encoding/binary"

// LTPView is a zero-copy read-only view over an 8-byte LTP packet body.
// Its lifetime is bound to the byte slice it borrows; callers must not
// retain the view past the lifetime of the owning RawFrame.
type LTPView struct{ b []byte }

// NewLTPView wraps b as an LTPView without copying. b must be exactly 8
// bytes; the caller is expected to have dispatched on length already.
func NewLTPView(b []byte) LTPView { return LTPView{b} }

func (v LTPView) Token() uint32 { return binary.BigEndian.Uint32(v.b[0:4]) }
func (v LTPView) LastPrice() int32 { return int32(binary.BigEndian.Uint32(v.b[4:8])) }

// QuoteView is a zero-copy view over a 44-byte Quote packet body.
type QuoteView struct{ b []byte }

func NewQuoteView(b []byte) QuoteView { return QuoteView{b} }

func (v QuoteView) Token() uint32 { return binary.BigEndian.Uint32(v.b[0:4]) }
func (v QuoteView) LastPrice() int32 { return int32(binary.BigEndian.Uint32(v.b[4:8])) }
func (v QuoteView) LastQty() uint32 { return binary.BigEndian.Uint32(v.b[8:12]) }
func (v QuoteView) AvgPrice() int32 { return int32(binary.BigEndian.Uint32(v.b[12:16])) }
func (v QuoteView) Volume() uint32 { return binary.BigEndian.Uint32(v.b[16:20]) }
func (v QuoteView) BuyQty() uint32 { return binary.BigEndian.Uint32(v.b[20:24]) }
func (v QuoteView) SellQty() uint32 { return binary.BigEndian.Uint32(v.b[24:28]) }
func (v QuoteView) Open() int32 { return int32(binary.BigEndian.Uint32(v.b[28:32])) }
func (v QuoteView) High() int32 { return int32(binary.BigEndian.Uint32(v.b[32:36])) }
func (v QuoteView) Low() int32 { return int32(binary.BigEndian.Uint32(v.b[36:40])) }
func (v QuoteView) Close() int32 { return int32(binary.BigEndian.Uint32(v.b[40:44])) }

// IndexLTPView is a zero-copy view over a 28-byte compact Index LTP packet
// body.
type IndexLTPView struct{ b []byte }

// NewIndexLTPView wraps b as an IndexLTPView without copying. b must be
// exactly 28 bytes.
func NewIndexLTPView(b []byte) IndexLTPView { return IndexLTPView{b} }

func (v IndexLTPView) Token() uint32 { return binary.BigEndian.Uint32(v.b[0:4]) }
func (v IndexLTPView) LastPrice() int32 { return int32(binary.BigEndian.Uint32(v.b[4:8])) }
func (v IndexLTPView) High() int32 { return int32(binary.BigEndian.Uint32(v.b[8:12])) }
func (v IndexLTPView) Low() int32 { return int32(binary.BigEndian.Uint32(v.b[12:16])) }
func (v IndexLTPView) Open() int32 { return int32(binary.BigEndian.Uint32(v.b[16:20])) }
func (v IndexLTPView) Close() int32 { return int32(binary.BigEndian.Uint32(v.b[20:24])) }
func (v IndexLTPView) PriceChange() int32 { return int32(binary.BigEndian.Uint32(v.b[24:28])) }

// IndexQuoteView is a zero-copy view over a 32-byte Index Quote packet body.
type IndexQuoteView struct{ b []byte }

// NewIndexQuoteView wraps b as an IndexQuoteView without copying. b must be
// exactly 32 bytes.
func NewIndexQuoteView(b []byte) IndexQuoteView { return IndexQuoteView{b} }

func (v IndexQuoteView) Token() uint32 { return binary.BigEndian.Uint32(v.b[0:4]) }
func (v IndexQuoteView) LastPrice() int32 { return int32(binary.BigEndian.Uint32(v.b[4:8])) }
func (v IndexQuoteView) High() int32 { return int32(binary.BigEndian.Uint32(v.b[8:12])) }
func (v IndexQuoteView) Low() int32 { return int32(binary.BigEndian.Uint32(v.b[12:16])) }
func (v IndexQuoteView) Open() int32 { return int32(binary.BigEndian.Uint32(v.b[16:20])) }
func (v IndexQuoteView) Close() int32 { return int32(binary.BigEndian.Uint32(v.b[20:24])) }
func (v IndexQuoteView) PriceChange() int32 { return int32(binary.BigEndian.Uint32(v.b[24:28])) }
func (v IndexQuoteView) ExchangeTime() uint32 { return binary.BigEndian.Uint32(v.b[28:32]) }

// FullView is a zero-copy view over a 184-byte Full packet body, including
// a borrowed accessor for each of the ten market-depth levels.
type FullView struct{ b []byte }

func NewFullView(b []byte) FullView { return FullView{b} }

func (v FullView) Token() uint32 { return binary.BigEndian.Uint32(v.b[0:4]) }
func (v FullView) LastPrice() int32 { return int32(binary.BigEndian.Uint32(v.b[4:8])) }
func (v FullView) LastQty() uint32 { return binary.BigEndian.Uint32(v.b[8:12]) }
func (v FullView) AvgPrice() int32 { return int32(binary.BigEndian.Uint32(v.b[12:16])) }
func (v FullView) Volume() uint32 { return binary.BigEndian.Uint32(v.b[16:20]) }
func (v FullView) BuyQty() uint32 { return binary.BigEndian.Uint32(v.b[20:24]) }
func (v FullView) SellQty() uint32 { return binary.BigEndian.Uint32(v.b[24:28]) }
func (v FullView) Open() int32 { return int32(binary.BigEndian.Uint32(v.b[28:32])) }
func (v FullView) High() int32 { return int32(binary.BigEndian.Uint32(v.b[32:36])) }
func (v FullView) Low() int32 { return int32(binary.BigEndian.Uint32(v.b[36:40])) }
func (v FullView) Close() int32 { return int32(binary.BigEndian.Uint32(v.b[40:44])) }
func (v FullView) LastTradeTime() uint32 { return binary.BigEndian.Uint32(v.b[44:48]) }
func (v FullView) OI() int32 { return int32(binary.BigEndian.Uint32(v.b[48:52])) }
func (v FullView) OIDayHigh() int32 { return int32(binary.BigEndian.Uint32(v.b[52:56])) }
func (v FullView) OIDayLow() int32 { return int32(binary.BigEndian.Uint32(v.b[56:60])) }
func (v FullView) ExchangeTime() uint32 { return binary.BigEndian.Uint32(v.b[60:64]) }

// DepthLevel returns the buy (side=0) or sell (side=1) depth entry at the
// given index in [0,5). It reads directly off the borrowed slice.
func (v FullView) DepthLevel(side, index int) DepthLevel {
	off := fullFixedLen + side*depthEntries*depthEntrySize + index*depthEntrySize
	return decodeDepthLevel(v.b, off)
}

// AsView returns the Shape whose packet length matches body, or false if the
// byte slice's length doesn't match any known shape. body must be the
// exact packet body bytes (not the length-prefixed frame slice).
func AsView(body []byte) (shape Shape, ok bool) {
	switch len(body) {
	case lenLTP:
		return ShapeLTP, true
	case lenIndexLTP:
		return ShapeIndexLTP, true
	case lenIndexQuote:
		return ShapeIndexQuote, true
	case lenQuote:
		return ShapeQuote, true
	case lenFull:
		return ShapeFull, true
	default:
		return 0, false
	}
}
