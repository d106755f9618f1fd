package pocsag

// Charset selects the national character-table variant used when
// rendering alphanumeric POCSAG pages, per spec.md §4.5: the US/DE/SE/
// FR/SI variants differ only at a handful of code points. Grounded on
// original_source/pocsag.c's trtab and pocsag_init_charset.
type Charset string

const (
	CharsetUS Charset = "US"
	CharsetDE Charset = "DE"
	CharsetSE Charset = "SE"
	CharsetFR Charset = "FR"
	CharsetSI Charset = "SI"
)

var controlNames = [32]string{
	"<NUL>", "<SOH>", "<STX>", "<ETX>", "<EOT>", "<ENQ>", "<ACK>", "<BEL>",
	"<BS>", "<HT>", "<LF>", "<VT>", "<FF>", "<CR>", "<SO>", "<SI>",
	"<DLE>", "<DC1>", "<DC2>", "<DC3>", "<DC4>", "<NAK>", "<SYN>", "<ETB>",
	"<CAN>", "<EM>", "<SUB>", "<ESC>", "<FS>", "<GS>", "<RS>", "<US>",
}

func baseTable() [128]string {
	var t [128]string
	for i := 0; i < 32; i++ {
		t[i] = controlNames[i]
	}
	for i := 32; i < 127; i++ {
		t[i] = string(rune(i))
	}
	t[127] = "<DEL>"
	return t
}

// overrides lists the code points each national variant substitutes.
// The DE and SE variants are spelled out as ASCII transliterations; the
// FR and SI variants use the UTF-8 national characters themselves.
var overrides = map[Charset]map[byte]string{
	CharsetDE: {
		0x5b: "AE", 0x5c: "OE", 0x5d: "UE",
		0x7b: "ae", 0x7c: "oe", 0x7d: "ue", 0x7e: "ss",
	},
	CharsetSE: {
		0x5b: "AE", 0x5c: "OE", 0x5d: "AO",
		0x7b: "ae", 0x7c: "oe", 0x7d: "ao",
	},
	CharsetFR: {
		0x24: "£", 0x40: "à",
		0x5b: "°", 0x5c: "ç", 0x5d: "§", 0x5e: "^", 0x5f: "_", 0x60: "µ",
		0x7b: "é", 0x7c: "ù", 0x7d: "è", 0x7e: "¨",
	},
	CharsetSI: {
		0x40: "Ž", 0x5b: "Š", 0x5e: "Č",
		0x60: "ž", 0x7b: "š", 0x7e: "č",
	},
}

func table(cs Charset) [128]string {
	t := baseTable()
	for code, s := range overrides[cs] {
		t[code] = s
	}
	return t
}
