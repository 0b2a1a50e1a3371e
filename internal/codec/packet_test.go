package codec

import "testing"

func TestDecodeFrame_LTP(t *testing.T) {
	// count=1, len=8, token=256265, lastPrice=30000
	frame := []byte{
		0x00, 0x01, // count
		0x00, 0x08, // packet length
		0x00, 0x03, 0xE9, 0x09, // token = 256265
		0x00, 0x00, 0x75, 0x30, // lastPrice = 30000
	}

	items := DecodeFrame(frame)
	if len(items) != 1 {
		t.Fatalf("want 1 item, got %d", len(items))
	}
	if items[0].Err != nil {
		t.Fatalf("unexpected error: %v", items[0].Err)
	}
	tick := items[0].Tick
	if tick.Shape != ShapeLTP {
		t.Fatalf("want ShapeLTP, got %v", tick.Shape)
	}
	if tick.Token != 256265 {
		t.Errorf("want token 256265, got %d", tick.Token)
	}
	if tick.LastPrice != 30000 {
		t.Errorf("want lastPrice 30000, got %d", tick.LastPrice)
	}
}

func TestDecodeFrame_Full(t *testing.T) {
	body := make([]byte, lenFull)
	putU32 := func(off int, v uint32) {
		body[off] = byte(v >> 24)
		body[off+1] = byte(v >> 16)
		body[off+2] = byte(v >> 8)
		body[off+3] = byte(v)
	}
	putU32(0, 408065)   // token
	putU32(4, 175050)   // lastPrice
	putU32(8, 75)       // lastQty
	putU32(48, 1234)    // OI

	// first buy depth level at offset 64
	putU32(64, 500) // quantity
	putU32(68, uint32(int32(174900)))
	body[72] = 0x00
	body[73] = 0x03 // orders = 3

	frame := make([]byte, 0, 4+lenFull)
	frame = append(frame, 0x00, 0x01)
	frame = append(frame, byte(lenFull>>8), byte(lenFull))
	frame = append(frame, body...)

	items := DecodeFrame(frame)
	if len(items) != 1 || items[0].Err != nil {
		t.Fatalf("unexpected result: %+v", items)
	}
	tick := items[0].Tick
	if tick.Shape != ShapeFull {
		t.Fatalf("want ShapeFull, got %v", tick.Shape)
	}
	if tick.Token != 408065 {
		t.Errorf("want token 408065, got %d", tick.Token)
	}
	if tick.OI != 1234 {
		t.Errorf("want OI 1234, got %d", tick.OI)
	}
	lvl := tick.MarketDepth.Buy[0]
	if lvl.Quantity != 500 || lvl.Price != 174900 || lvl.Orders != 3 {
		t.Errorf("unexpected depth level: %+v", lvl)
	}
}

func TestDecodeFrame_TruncatedFrame(t *testing.T) {
	// count=2 but only one full packet follows
	frame := []byte{
		0x00, 0x02,
		0x00, 0x08,
		0x00, 0x03, 0xE9, 0x09,
		0x00, 0x00, 0x75, 0x30,
		0x00, 0x08, // second packet header claims length 8 but body is missing
	}

	items := DecodeFrame(frame)
	if len(items) != 2 {
		t.Fatalf("want 2 items, got %d", len(items))
	}
	if items[0].Err != nil {
		t.Fatalf("first packet should decode cleanly, got %v", items[0].Err)
	}
	if items[1].Err == nil || items[1].Err.Kind != ErrTruncatedFrame {
		t.Fatalf("want ErrTruncatedFrame, got %+v", items[1])
	}
}

func TestDecodeFrame_UnknownShape(t *testing.T) {
	frame := []byte{
		0x00, 0x01,
		0x00, 0x05, // no shape has length 5
		0x01, 0x02, 0x03, 0x04, 0x05,
	}

	items := DecodeFrame(frame)
	if len(items) != 1 {
		t.Fatalf("want 1 item, got %d", len(items))
	}
	if items[0].Err == nil || items[0].Err.Kind != ErrUnknownShape {
		t.Fatalf("want ErrUnknownShape, got %+v", items[0])
	}
	if items[0].Err.Length != 5 {
		t.Errorf("want length 5, got %d", items[0].Err.Length)
	}
}

func TestDecodeFrame_Empty(t *testing.T) {
	if items := DecodeFrame(nil); items != nil {
		t.Fatalf("want nil for empty frame, got %+v", items)
	}
}

func TestDecodeFrame_MultiplePackets(t *testing.T) {
	frame := []byte{
		0x00, 0x02,
		0x00, 0x08,
		0x00, 0x03, 0xE9, 0x09,
		0x00, 0x00, 0x75, 0x30,
		0x00, 0x08,
		0x00, 0x03, 0xE9, 0x0A,
		0x00, 0x00, 0x75, 0x31,
	}

	items := DecodeFrame(frame)
	if len(items) != 2 {
		t.Fatalf("want 2 items, got %d", len(items))
	}
	if items[0].Tick.Token != 256265 || items[1].Tick.Token != 256266 {
		t.Errorf("unexpected tokens: %d, %d", items[0].Tick.Token, items[1].Tick.Token)
	}
}

func TestDecodeFrame_IndexLTP(t *testing.T) {
	body := make([]byte, lenIndexLTP)
	putU32 := func(off int, v uint32) {
		body[off] = byte(v >> 24)
		body[off+1] = byte(v >> 16)
		body[off+2] = byte(v >> 8)
		body[off+3] = byte(v)
	}
	putU32(0, 260105)              // token
	putU32(4, 1823450)             // lastPrice
	putU32(8, 1830000)             // high
	putU32(12, 1810500)            // low
	putU32(16, 1815000)            // open
	putU32(20, 1822000)            // close
	putU32(24, uint32(int32(1450))) // priceChange

	frame := make([]byte, 0, 4+lenIndexLTP)
	frame = append(frame, 0x00, 0x01)
	frame = append(frame, byte(lenIndexLTP>>8), byte(lenIndexLTP))
	frame = append(frame, body...)

	items := DecodeFrame(frame)
	if len(items) != 1 || items[0].Err != nil {
		t.Fatalf("unexpected result: %+v", items)
	}
	tick := items[0].Tick
	if tick.Shape != ShapeIndexLTP {
		t.Fatalf("want ShapeIndexLTP, got %v", tick.Shape)
	}
	if tick.Token != 260105 {
		t.Errorf("want token 260105, got %d", tick.Token)
	}
	if tick.LastPrice != 1823450 {
		t.Errorf("want lastPrice 1823450, got %d", tick.LastPrice)
	}
	if tick.High != 1830000 || tick.Low != 1810500 || tick.Open != 1815000 || tick.Close != 1822000 {
		t.Errorf("unexpected high/low/open/close: %+v", tick)
	}
	if tick.PriceChange != 1450 {
		t.Errorf("want priceChange 1450, got %d", tick.PriceChange)
	}
}

func TestDecodeFrame_IndexQuote(t *testing.T) {
	body := make([]byte, lenIndexQuote)
	putU32 := func(off int, v uint32) {
		body[off] = byte(v >> 24)
		body[off+1] = byte(v >> 16)
		body[off+2] = byte(v >> 8)
		body[off+3] = byte(v)
	}
	putU32(0, 260105)               // token
	putU32(4, 1823450)              // lastPrice
	putU32(8, 1830000)              // high
	putU32(12, 1810500)             // low
	putU32(16, 1815000)             // open
	putU32(20, 1822000)             // close
	putU32(24, uint32(int32(1450))) // priceChange
	putU32(28, 1700000000)          // exchangeTs

	frame := make([]byte, 0, 4+lenIndexQuote)
	frame = append(frame, 0x00, 0x01)
	frame = append(frame, byte(lenIndexQuote>>8), byte(lenIndexQuote))
	frame = append(frame, body...)

	items := DecodeFrame(frame)
	if len(items) != 1 || items[0].Err != nil {
		t.Fatalf("unexpected result: %+v", items)
	}
	tick := items[0].Tick
	if tick.Shape != ShapeIndexQuote {
		t.Fatalf("want ShapeIndexQuote, got %v", tick.Shape)
	}
	if tick.ExchangeTime != 1700000000 {
		t.Errorf("want exchangeTs 1700000000, got %d", tick.ExchangeTime)
	}
	if tick.High != 1830000 || tick.Low != 1810500 || tick.Open != 1815000 || tick.Close != 1822000 {
		t.Errorf("unexpected high/low/open/close: %+v", tick)
	}
}

func TestIndexLTPView(t *testing.T) {
	body := make([]byte, lenIndexLTP)
	body[3] = 0x01   // token = 1
	body[7] = 0x02   // lastPrice = 2
	body[11] = 0x03  // high = 3
	body[15] = 0x04  // low = 4
	body[19] = 0x05  // open = 5
	body[23] = 0x06  // close = 6
	body[27] = 0x07  // priceChange = 7

	v := NewIndexLTPView(body)
	if v.Token() != 1 || v.LastPrice() != 2 || v.High() != 3 || v.Low() != 4 ||
		v.Open() != 5 || v.Close() != 6 || v.PriceChange() != 7 {
		t.Errorf("unexpected IndexLTPView fields: token=%d lastPrice=%d high=%d low=%d open=%d close=%d priceChange=%d",
			v.Token(), v.LastPrice(), v.High(), v.Low(), v.Open(), v.Close(), v.PriceChange())
	}
}

func TestIndexQuoteView(t *testing.T) {
	body := make([]byte, lenIndexQuote)
	body[3] = 0x01  // token = 1
	body[31] = 0x09 // exchangeTs = 9

	v := NewIndexQuoteView(body)
	if v.Token() != 1 {
		t.Errorf("want token 1, got %d", v.Token())
	}
	if v.ExchangeTime() != 9 {
		t.Errorf("want exchangeTs 9, got %d", v.ExchangeTime())
	}
}

func TestAsView_IndexShapes(t *testing.T) {
	if shape, ok := AsView(make([]byte, lenIndexLTP)); !ok || shape != ShapeIndexLTP {
		t.Errorf("want ShapeIndexLTP,true for 28-byte body, got %v,%v", shape, ok)
	}
	if shape, ok := AsView(make([]byte, lenIndexQuote)); !ok || shape != ShapeIndexQuote {
		t.Errorf("want ShapeIndexQuote,true for 32-byte body, got %v,%v", shape, ok)
	}
}

func TestLTPView(t *testing.T) {
	body := []byte{0x00, 0x03, 0xE9, 0x09, 0x00, 0x00, 0x75, 0x30}
	v := NewLTPView(body)
	if v.Token() != 256265 {
		t.Errorf("want token 256265, got %d", v.Token())
	}
	if v.LastPrice() != 30000 {
		t.Errorf("want lastPrice 30000, got %d", v.LastPrice())
	}
}
