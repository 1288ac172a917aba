// Command navmesh builds navigation meshes from OBJ level geometry and runs
// path queries against the saved tile sets.
//
//	navmesh build -obj level.obj -settings settings.yaml -out level.navmesh
//	navmesh path -mesh level.navmesh -start 1,0,1 -end 9,0,9
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Robmaister/SharpNav-sub000/common"
	"github.com/Robmaister/SharpNav-sub000/common/logger"
	"github.com/Robmaister/SharpNav-sub000/debug_utils"
	"github.com/Robmaister/SharpNav-sub000/detour"
	"github.com/Robmaister/SharpNav-sub000/navmesh"
	"github.com/Robmaister/SharpNav-sub000/recast"
	"go.uber.org/zap"
)

var errUsage = errors.New("usage: navmesh <build|path> [flags]")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "build":
		return runBuild(args[1:], stdout)
	case "path":
		return runPath(args[1:], stdout)
	}
	return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
}

func logFlags(fs *flag.FlagSet) *logger.Config {
	cfg := &logger.Config{}
	fs.StringVar(&cfg.Level, "log-level", "info", "log level")
	fs.StringVar(&cfg.File, "log-file", "", "rotating JSON log file")
	fs.IntVar(&cfg.MaxSizeMB, "log-max-size", 10, "log file size in MB before rotation")
	fs.IntVar(&cfg.MaxBackups, "log-max-backups", 3, "rotated log files to keep")
	fs.BoolVar(&cfg.Console, "log-console", false, "also log to stderr when -log-file is set")
	return cfg
}

func runBuild(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	objPath := fs.String("obj", "", "input OBJ geometry")
	scale := fs.Float64("scale", 1, "scale applied to the OBJ vertices")
	settingsPath := fs.String("settings", "", "YAML generation settings, defaults when empty")
	outPath := fs.String("out", "", "output tile set")
	dumpPath := fs.String("dump-obj", "", "write the detail surface as OBJ")
	times := fs.Bool("times", false, "log per phase build times")
	logCfg := logFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *objPath == "" || *outPath == "" {
		return errors.New("build: -obj and -out are required")
	}

	log, err := logger.New(*logCfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	settings := navmesh.Default()
	if *settingsPath != "" {
		if settings, err = navmesh.LoadSettings(*settingsPath); err != nil {
			return err
		}
	}
	geom, err := recast.LoadObjFile(*objPath, float32(*scale))
	if err != nil {
		return err
	}
	log.Info("geometry loaded",
		zap.String("path", *objPath),
		zap.Int("verts", len(geom.Verts)),
		zap.Int("tris", geom.TriangleCount()))

	mesh, err := navmesh.Generate(geom, settings, log)
	if err != nil {
		return err
	}
	if *times {
		debug_utils.LogBuildTimes(mesh.BuildContext, log)
	}
	if err := mesh.SaveFile(*outPath); err != nil {
		return err
	}
	if *dumpPath != "" {
		f, err := os.Create(*dumpPath)
		if err != nil {
			return err
		}
		if err := debug_utils.DumpNavMeshToObj(mesh.TiledNavMesh, f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	fmt.Fprintf(stdout, "%s %d tiles\n", mesh.BuildID, len(mesh.Tiles))
	return nil
}

func parseVec3(s string) (common.Vec3, error) {
	var v common.Vec3
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("bad position %q, want x,y,z", s)
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return v, fmt.Errorf("bad position %q: %w", s, err)
		}
		v[i] = float32(f)
	}
	return v, nil
}

func parseCrossings(s string) (detour.StraightPathOptions, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return 0, nil
	case "area":
		return detour.StraightPathAreaCrossings, nil
	case "all":
		return detour.StraightPathAllCrossings, nil
	}
	return 0, fmt.Errorf("bad crossings %q, want none, area or all", s)
}

func runPath(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("path", flag.ContinueOnError)
	meshPath := fs.String("mesh", "", "tile set written by build")
	startStr := fs.String("start", "", "start position x,y,z")
	endStr := fs.String("end", "", "end position x,y,z")
	extStr := fs.String("extents", "2,4,2", "nearest polygon search half extents x,y,z")
	include := fs.Uint("include", 0xffff, "polygon flags to include")
	exclude := fs.Uint("exclude", 0, "polygon flags to exclude")
	crossingsStr := fs.String("crossings", "none", "straight path crossing vertices: none, area or all")
	maxNodes := fs.Int("max-nodes", 2048, "search node pool size")
	maxPath := fs.Int("max-path", 256, "longest polygon corridor")
	logCfg := logFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *meshPath == "" {
		return errors.New("path: -mesh is required")
	}
	start, err := parseVec3(*startStr)
	if err != nil {
		return err
	}
	end, err := parseVec3(*endStr)
	if err != nil {
		return err
	}
	ext, err := parseVec3(*extStr)
	if err != nil {
		return err
	}
	crossings, err := parseCrossings(*crossingsStr)
	if err != nil {
		return err
	}

	log, err := logger.New(*logCfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	mesh, err := navmesh.LoadFile(*meshPath, log)
	if err != nil {
		return err
	}
	q, err := mesh.NewQuery(*maxNodes)
	if err != nil {
		return err
	}
	filter := detour.NewStandardQueryFilter()
	filter.SetIncludeFlags(uint16(*include))
	filter.SetExcludeFlags(uint16(*exclude))

	startPoly, status := q.FindNearestPoly(start, ext, filter)
	if status.Failed() || startPoly.Ref == 0 {
		return fmt.Errorf("path: no polygon near start %v (%s)", start, status)
	}
	endPoly, status := q.FindNearestPoly(end, ext, filter)
	if status.Failed() || endPoly.Ref == 0 {
		return fmt.Errorf("path: no polygon near end %v (%s)", end, status)
	}

	corridor, status := q.FindPath(startPoly.Ref, endPoly.Ref, startPoly.Point, endPoly.Point, filter, *maxPath)
	if status.Failed() {
		return fmt.Errorf("path: find path: %s", status)
	}
	if status.Detail(detour.PartialResult) {
		log.Warn("end is unreachable, path ends at the closest polygon", zap.Stringer("status", status))
	}
	// Clamp the end to the last polygon of a partial corridor.
	target := endPoly.Point
	if last := corridor[len(corridor)-1]; last != endPoly.Ref {
		target, _, _ = q.ClosestPointOnPoly(last, endPoly.Point)
	}
	points, status := q.FindStraightPath(startPoly.Point, target, corridor, *maxPath, crossings)
	if status.Failed() {
		return fmt.Errorf("path: straight path: %s", status)
	}
	log.Debug("path found",
		zap.Stringer("buildId", mesh.BuildID),
		zap.Int("polys", len(corridor)),
		zap.Int("points", len(points)))

	for _, p := range points {
		fmt.Fprintf(stdout, "%.3f %.3f %.3f %d\n", p.Pos[0], p.Pos[1], p.Pos[2], p.Flags)
	}
	return nil
}
