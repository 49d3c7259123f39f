package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/torfstack/assetprint/internal/archive"
	"github.com/torfstack/assetprint/internal/db"
	"github.com/torfstack/assetprint/internal/fingerprint"
	"github.com/torfstack/assetprint/internal/inventory"
	"github.com/torfstack/assetprint/internal/ui"
)

type AssetList struct {
	Root         string   `json:"root" yaml:"root"`
	Assets       []string `json:"assets" yaml:"assets"`
	ListingError string   `json:"listing_error,omitempty" yaml:"listing_error,omitempty"`
}

func NewAssetList(root string, inv *inventory.Inventory) AssetList {
	return AssetList{
		Root:         root,
		Assets:       inv.Assets(),
		ListingError: errString(inv.ListingErr()),
	}
}

func (l AssetList) RenderText(w io.Writer) error {
	for _, a := range l.Assets {
		if _, err := fmt.Fprintln(w, a); err != nil {
			return err
		}
	}
	if l.ListingError != "" {
		_, err := fmt.Fprintln(w, ui.FormatWarning("listing incomplete: "+l.ListingError))
		return err
	}
	return nil
}

type Fingerprint struct {
	Archive      string   `json:"archive" yaml:"archive"`
	Fingerprint  string   `json:"fingerprint" yaml:"fingerprint"`
	Known        bool     `json:"known" yaml:"known"`
	Assets       int      `json:"assets" yaml:"assets"`
	Found        int      `json:"found" yaml:"found"`
	Missing      []string `json:"missing,omitempty" yaml:"missing,omitempty"`
	ListingError string   `json:"listing_error,omitempty" yaml:"listing_error,omitempty"`
	ArchiveError string   `json:"archive_error,omitempty" yaml:"archive_error,omitempty"`
}

func NewFingerprint(inv *inventory.Inventory) Fingerprint {
	res := inv.Result()
	return Fingerprint{
		Archive:      inv.ArchivePath(),
		Fingerprint:  res.Value,
		Known:        res.Known(),
		Assets:       len(inv.Assets()),
		Found:        res.Found,
		Missing:      res.Missing,
		ListingError: errString(inv.ListingErr()),
		ArchiveError: errString(res.Err),
	}
}

func (f Fingerprint) RenderText(w io.Writer) error {
	value := f.Fingerprint
	if !f.Known {
		value = ui.FormatMuted("(unknown)")
	}
	lines := []string{
		ui.RenderKeyValue("Archive", f.Archive),
		ui.RenderKeyValue("Fingerprint", value),
		ui.RenderKeyValue("Assets", fmt.Sprintf("%d found of %d", f.Found, f.Assets)),
	}
	for _, m := range f.Missing {
		lines = append(lines, ui.FormatWarning("missing entry: "+m))
	}
	if f.ListingError != "" {
		lines = append(lines, ui.FormatWarning("listing incomplete: "+f.ListingError))
	}
	if f.ArchiveError != "" {
		lines = append(lines, ui.FormatError(f.ArchiveError))
	}
	return writeLines(w, lines)
}

type Check struct {
	Fingerprint `yaml:",inline"`
	Status      string     `json:"status" yaml:"status"`
	Previous    string     `json:"previous,omitempty" yaml:"previous,omitempty"`
	PreviousAt  *time.Time `json:"previous_at,omitempty" yaml:"previous_at,omitempty"`
}

func NewCheck(fp Fingerprint, status string, previous *db.Fingerprint) Check {
	c := Check{Fingerprint: fp, Status: status}
	if previous != nil {
		c.Previous = previous.Fingerprint
		at := previous.CreatedAt
		c.PreviousAt = &at
	}
	return c
}

func (c Check) RenderText(w io.Writer) error {
	if err := c.Fingerprint.RenderText(w); err != nil {
		return err
	}
	var line string
	switch c.Status {
	case "unchanged":
		line = ui.FormatSuccess("Assets unchanged")
		if c.PreviousAt != nil {
			line = ui.FormatSuccess("Assets unchanged since " + c.PreviousAt.Local().Format(time.DateTime))
		}
	case "changed":
		line = ui.FormatWarning("Assets changed, previous fingerprint " + c.Previous)
	case "new":
		line = ui.FormatInfo("First fingerprint recorded for this archive")
	default:
		line = ui.FormatError("Asset state unknown, nothing recorded")
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

type History struct {
	Archive string           `json:"archive" yaml:"archive"`
	Records []db.Fingerprint `json:"records" yaml:"records"`
}

func (h History) RenderText(w io.Writer) error {
	if len(h.Records) == 0 {
		_, err := fmt.Fprintln(w, ui.FormatInfo("No fingerprints recorded for "+h.Archive))
		return err
	}
	tbl := ui.NewTable(
		ui.Column{Header: "ID", AlignRight: true},
		ui.Column{Header: "RECORDED"},
		ui.Column{Header: "ASSETS", AlignRight: true},
		ui.Column{Header: "MISSING", AlignRight: true},
		ui.Column{Header: "FINGERPRINT"},
	)
	for _, r := range h.Records {
		tbl.AddRow(
			strconv.FormatInt(r.ID, 10),
			r.CreatedAt.Local().Format(time.DateTime),
			strconv.FormatInt(r.AssetCount, 10),
			strconv.FormatInt(r.MissingCount, 10),
			abbreviate(r.Fingerprint, 48),
		)
	}
	_, err := io.WriteString(w, tbl.Render())
	return err
}

type Entries struct {
	Archive string          `json:"archive" yaml:"archive"`
	Entries []archive.Entry `json:"entries" yaml:"entries"`
}

func (e Entries) RenderText(w io.Writer) error {
	tbl := ui.NewTable(
		ui.Column{Header: "ENTRY"},
		ui.Column{Header: "CRC32", AlignRight: true},
		ui.Column{Header: "SIZE", AlignRight: true},
		ui.Column{Header: "STORED", AlignRight: true},
	)
	for _, entry := range e.Entries {
		tbl.AddRow(
			entry.Name,
			fingerprint.Hex(entry.CRC32),
			strconv.FormatUint(entry.UncompressedSize, 10),
			strconv.FormatUint(entry.CompressedSize, 10),
		)
	}
	_, err := io.WriteString(w, tbl.Render())
	return err
}

func abbreviate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func writeLines(w io.Writer, lines []string) error {
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
