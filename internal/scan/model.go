package scan

import "time"

type WasteType string

const (
	WastePlastic WasteType = "PLASTIC"
	WasteGlass   WasteType = "GLASS"
	WastePaper   WasteType = "PAPER"
	WasteOrganic WasteType = "ORGANIC"
	WasteMetal   WasteType = "METAL"
)

// BinInfo — куда выбрасывать данный тип отходов.
type BinInfo struct {
	Name     string `json:"name"`
	Color    string `json:"color"`
	HexColor string `json:"hex_color"`
}

var binByWasteType = map[WasteType]BinInfo{
	WastePlastic: {Name: "Plastic Recycling Bin", Color: "Yellow", HexColor: "#FFD700"},
	WasteGlass:   {Name: "Glass Recycling Bin", Color: "Blue", HexColor: "#4169E1"},
	WastePaper:   {Name: "Paper Recycling Bin", Color: "Green", HexColor: "#228B22"},
	WasteOrganic: {Name: "Organic Waste Bin", Color: "Brown", HexColor: "#8B4513"},
	WasteMetal:   {Name: "Metal Recycling Bin", Color: "Gray", HexColor: "#808080"},
}

// Fixed award table, not computed.
var pointsByWasteType = map[WasteType]int64{
	WastePlastic: 10,
	WasteGlass:   15,
	WastePaper:   8,
	WasteOrganic: 5,
	WasteMetal:   20,
}

func BinFor(wt WasteType) (BinInfo, bool) {
	bin, ok := binByWasteType[wt]
	return bin, ok
}

func PointsFor(wt WasteType) int64 {
	return pointsByWasteType[wt]
}

func ValidWasteType(wt WasteType) bool {
	_, ok := binByWasteType[wt]
	return ok
}

// Scan is immutable once created, except for the best-effort blob reference
// attached after a successful proof upload.
type Scan struct {
	ID           int       `db:"id" json:"id"`
	UserID       int       `db:"user_id" json:"user_id"`
	WasteType    string    `db:"waste_type" json:"waste_type"`
	BinName      string    `db:"bin_name" json:"bin_name"`
	BinColor     string    `db:"bin_color" json:"bin_color"`
	ImageURL     string    `db:"image_url" json:"image_url"`
	BlobID       *string   `db:"blob_id" json:"blob_id,omitempty"`
	ImageHash    string    `db:"image_hash" json:"image_hash"`
	PointsEarned int64     `db:"points_earned" json:"points_earned"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
