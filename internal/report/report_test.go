package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"example.com/sorgate/internal/sor"
	"example.com/sorgate/internal/sor/sortest"
)

func sampleTrace(t *testing.T) sor.Trace {
	t.Helper()
	trace, err := sor.Decode(sortest.Sample(sortest.DefaultSampleOptions()))
	if err != nil {
		t.Fatalf("decode sample: %v", err)
	}
	return trace
}

func TestSectionsFieldOrder(t *testing.T) {
	sections := Sections(sampleTrace(t))
	if len(sections) != 9 {
		t.Fatalf("sections = %d, want 9", len(sections))
	}
	gen := sections[1]
	var keys []string
	for el := gen.Fields.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Key)
	}
	if len(keys) != 13 || keys[0] != "gen.languageCode" || keys[12] != "gen.comment" {
		t.Fatalf("GenParams keys = %v", keys)
	}
	if v, _ := gen.Fields.Get("gen.wavelength"); v != "1550 nm" {
		t.Fatalf("wavelength = %q", v)
	}

	fxd := sections[3]
	if v, _ := fxd.Fields.Get("fxd.actualWavelength"); v != "1550 nm" {
		t.Fatalf("actual wavelength = %q", v)
	}
	if v, _ := fxd.Fields.Get("fxd.reflectanceThreshold"); v != "-60 dB" {
		t.Fatalf("reflectance threshold = %q", v)
	}

	events := sections[4]
	if len(events.Tables) != 1 || len(events.Tables[0].Rows) != 3 {
		t.Fatalf("event table = %+v", events.Tables)
	}
	if got := events.Tables[0].Rows[0][2]; got != "0.21" {
		t.Fatalf("attenuation cell = %q", got)
	}
	landmarks := sections[5].Tables[0]
	if len(landmarks.Rows) != 2 || landmarks.Rows[1][5] != "1.5%" {
		t.Fatalf("landmark table = %+v", landmarks.Rows)
	}
	if sections[6].Block.Kind() != sor.KindUnknown || sections[6].Fields.Len() != 0 {
		t.Fatalf("vendor section = %+v", sections[6])
	}
}

func TestWriteText(t *testing.T) {
	trace := sampleTrace(t)
	tests := []struct {
		lang  Language
		wants []string
	}{
		{LangEnglish, []string{"General Parameters (version 200", "Cable ID:", "CBL-0042", "Events:", "VendorTrace", "Checksum", "0x5A5A"}},
		{LangChinese, []string{"常规参数", "光缆编号", "未识别的数据块"}},
	}
	for _, tc := range tests {
		t.Run(string(tc.lang), func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteText(&buf, trace, NewTranslator(tc.lang)); err != nil {
				t.Fatalf("WriteText: %v", err)
			}
			out := buf.String()
			for _, want := range tc.wants {
				if !strings.Contains(out, want) {
					t.Fatalf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestWriteTextShowsBlockError(t *testing.T) {
	content := sortest.Content(sor.GenParamsBlockID).Fixed("EN", 2).Bytes()
	trace, err := sor.Decode(sortest.File(200, sortest.Block{ID: sor.GenParamsBlockID, Version: 200, Content: content}))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteText(&buf, trace, NewTranslator(LangEnglish)); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if !strings.Contains(buf.String(), "Decode error:") {
		t.Fatalf("missing error line:\n%s", buf.String())
	}
}

func TestMarshalTraceContent(t *testing.T) {
	trace := sampleTrace(t)
	for _, withContent := range []bool{false, true} {
		b, err := MarshalTrace(trace, withContent)
		if err != nil {
			t.Fatalf("MarshalTrace: %v", err)
		}
		var view struct {
			Blocks []struct {
				ID      string                 `json:"id"`
				Kind    string                 `json:"kind"`
				Fields  map[string]interface{} `json:"fields"`
				Content []byte                 `json:"content"`
			} `json:"blocks"`
			ContentEnd int64 `json:"contentEnd"`
		}
		if err := json.Unmarshal(b, &view); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(view.Blocks) != len(trace.Blocks) || view.ContentEnd != trace.ContentEnd {
			t.Fatalf("view = %d blocks, end %d", len(view.Blocks), view.ContentEnd)
		}
		hasContent := len(view.Blocks[1].Content) > 0
		if hasContent != withContent {
			t.Fatalf("withContent=%v but content present=%v", withContent, hasContent)
		}
		if view.Blocks[1].Kind != "GenParams" || view.Blocks[1].Fields["cableId"] != "CBL-0042" {
			t.Fatalf("GenParams view = %v", view.Blocks[1].Fields)
		}
		if view.Blocks[6].Kind != "Unknown" || view.Blocks[6].Fields != nil {
			t.Fatalf("vendor view = %+v", view.Blocks[6])
		}
	}
	if len(trace.Blocks[1].Content) == 0 {
		t.Fatalf("MarshalTrace stripped the caller's content")
	}
}

func TestSaveTraceJSON(t *testing.T) {
	out := filepath.Join(t.TempDir(), "trace.json")
	if err := SaveTraceJSON(sampleTrace(t), out, false); err != nil {
		t.Fatalf("SaveTraceJSON: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !json.Valid(b) {
		t.Fatalf("invalid JSON written")
	}
}

func TestSaveTracePDF(t *testing.T) {
	out := filepath.Join(t.TempDir(), "trace.pdf")
	opts := PDFOptions{
		Lang:       LangEnglish,
		SourceName: "sample.sor",
		SourceHash: "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		Generated:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := SaveTracePDF(sampleTrace(t), out, opts); err != nil {
		t.Fatalf("SaveTracePDF: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF")
	}
}

func TestWriteTracePDFFallsBackWithoutFont(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTracePDF(&buf, sampleTrace(t), PDFOptions{Lang: LangChinese}); err != nil {
		t.Fatalf("WriteTracePDF: %v", err)
	}
	if buf.Len() == 0 || !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("no PDF produced")
	}
}

func TestHashToQR(t *testing.T) {
	png, err := HashToQR(" ab-cd:ef ", 64)
	if err != nil {
		t.Fatalf("HashToQR: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatalf("not a PNG")
	}
	if _, err := HashToQR("zz", 64); err == nil {
		t.Fatalf("expected error for empty hash")
	}
	if got := normalizeHex(" ab-cd:ef "); got != "ABCDEF" {
		t.Fatalf("normalizeHex = %q", got)
	}
}

func TestTranslator(t *testing.T) {
	zh := NewTranslator(LangChinese)
	if zh.T("gen.cableId") != "光缆编号" {
		t.Fatalf("zh label = %q", zh.T("gen.cableId"))
	}
	if zh.T("missing.key") != "missing.key" {
		t.Fatalf("missing key should echo")
	}
	if NewTranslator("fr").Lang() != LangEnglish {
		t.Fatalf("unknown language should fall back to English")
	}
	for _, in := range []string{"", "EN", "english"} {
		if lang, err := ParseLanguage(in); err != nil || lang != LangEnglish {
			t.Fatalf("ParseLanguage(%q) = %v %v", in, lang, err)
		}
	}
	if lang, err := ParseLanguage("zh-CN"); err != nil || lang != LangChinese {
		t.Fatalf("ParseLanguage(zh-CN) = %v %v", lang, err)
	}
	if _, err := ParseLanguage("de"); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Fatalf("expected ErrUnsupportedLanguage, got %v", err)
	}
}

func TestLocalesShareKeys(t *testing.T) {
	for key := range locales[LangEnglish] {
		if _, ok := locales[LangChinese][key]; !ok {
			t.Fatalf("zh catalog missing %q", key)
		}
	}
}
