package detect

import "fmt"

// extractImage is the OCR extraction path for image formats. No OCR engine
// ships in the example pack (no tesseract/gosseract binding, and
// whisper.cpp only covers audio), so there is nothing to ground a real
// implementation on; see DESIGN.md. This returns extraction_failed via the
// raw-decode fallback chain in Extract, which is the documented behavior
// for an extractor that cannot produce text (spec §4.1).
func extractImage(in Input) (Result, error) {
	return Result{}, fmt.Errorf("OCR extraction not available: %s", in.LanguageHint)
}
