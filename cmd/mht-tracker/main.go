// Command mht-tracker replays a recorded frame-by-frame scenario through
// the multi-hypothesis tracker and prints each frame's active tracks as
// JSON lines, for offline tuning and scenario regression checks.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/laser-mht/internal/mht"
	"github.com/banshee-data/laser-mht/internal/mhtconfig"
	"github.com/banshee-data/laser-mht/internal/mhtstore"
)

// scenarioFrame is one line of the input scenario file: a frame's list
// of observed objects.
type scenarioFrame struct {
	Objects []scenarioObject `json:"objects"`
}

type scenarioObject struct {
	X                  float64            `json:"x"`
	Y                  float64            `json:"y"`
	ReferencePointType string             `json:"reference_point_type"`
	Segments           [][2][2]float64    `json:"segments,omitempty"`
	CornerIndex        int                `json:"corner_index"`
}

func (o scenarioObject) toObject() (mht.Object, error) {
	obj := mht.Object{
		ReferencePoint: mht.Point2D{X: o.X, Y: o.Y},
		CornerIndex:    o.CornerIndex,
	}
	switch o.ReferencePointType {
	case "", "corner":
		obj.ReferencePointType = mht.ReferencePointCorner
	case "centroid":
		obj.ReferencePointType = mht.ReferencePointCentroid
	case "visible_endpoint":
		obj.ReferencePointType = mht.ReferencePointVisibleEndpoint
	default:
		return mht.Object{}, fmt.Errorf("unknown reference_point_type %q", o.ReferencePointType)
	}

	segments := make([]mht.Segment2D, 0, len(o.Segments))
	for _, s := range o.Segments {
		segments = append(segments, mht.Segment2D{
			A: mht.Point2D{X: s[0][0], Y: s[0][1]},
			B: mht.Point2D{X: s[1][0], Y: s[1][1]},
		})
	}
	obj.ReferencePointSource = mht.ReferencePointSource{Segments: segments}
	return obj, nil
}

func main() {
	scenarioPath := flag.String("scenario", "", "path to a JSON-lines scenario file (one frame's objects per line)")
	configPath := flag.String("config", "", "path to a JSON tuning config (defaults are used if omitted)")
	dbPath := flag.String("db", "", "optional SQLite path to mirror committed tracks and false alarms into")
	flag.Parse()

	if *scenarioPath == "" {
		log.Fatal("mht-tracker: -scenario is required")
	}

	tuning := mhtconfig.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := mhtconfig.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("mht-tracker: load config: %v", err)
		}
		tuning = loaded
	}

	var extra []mht.HookSubscriber
	if *dbPath != "" {
		db, err := mhtstore.Open(*dbPath)
		if err != nil {
			log.Fatalf("mht-tracker: open db: %v", err)
		}
		defer db.Close()
		extra = append(extra, mhtstore.NewSink(db))
	}

	tracker, err := mht.NewMultiTracker(tuning.TrackerConfig(), extra...)
	if err != nil {
		log.Fatalf("mht-tracker: construct tracker: %v", err)
	}
	log.Printf("mht-tracker: starting run %s", tracker.RunID())

	file, err := os.Open(*scenarioPath)
	if err != nil {
		log.Fatalf("mht-tracker: open scenario: %v", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	encoder := json.NewEncoder(os.Stdout)

	for {
		var frame scenarioFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			log.Fatalf("mht-tracker: decode scenario frame: %v", err)
		}

		objects := make([]mht.Object, 0, len(frame.Objects))
		for _, so := range frame.Objects {
			obj, err := so.toObject()
			if err != nil {
				log.Printf("mht-tracker: skipping malformed object: %v", err)
				continue
			}
			objects = append(objects, obj)
		}

		tracks := tracker.Update(objects)
		if err := encoder.Encode(tracks); err != nil {
			log.Fatalf("mht-tracker: encode result: %v", err)
		}
	}
}
