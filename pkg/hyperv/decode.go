package hyperv

import (
	"fmt"
	"strings"

	"github.com/ormasoftchile/hvcpi/pkg/action"
	"github.com/ormasoftchile/hvcpi/pkg/normalize"
	"github.com/ormasoftchile/hvcpi/pkg/shell"
)

// Categorical code tables. Codes outside a table resolve to Unknown
// rather than failing the whole decode.
var (
	vmStates = normalize.Lookup{2: "Running", 3: "Stopped"}
	vhdTypes = normalize.Lookup{1: "FixedSize", 2: "DynamicExpanding", 3: "Differencing"}
)

func lower(s string) string { return strings.ToLower(s) }

// guid extracts an identifier field. Depending on the tool version the
// Id serializes either as a plain string or as an object with a Guid
// member.
func guid(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case map[string]any:
		return normalize.Str(v, "Guid", "unknown")
	default:
		return "unknown"
	}
}

func decodeInstallProbe(_ action.Args, res *shell.Result) (action.Result, error) {
	obj, err := normalize.DecodeObject(res.Stdout)
	if err != nil {
		return nil, err
	}
	major := normalize.Num(obj, "Major", 0)
	if major == 0 {
		return nil, fmt.Errorf("could not determine tool version")
	}
	return action.Result{
		"success": true,
		"version": fmt.Sprintf("%d.%d", major, normalize.Num(obj, "Minor", 0)),
	}, nil
}

func decodeWorkerList(_ action.Args, res *shell.Result) (action.Result, error) {
	rows, err := normalize.DecodeTable(res.Stdout, []string{"name", "id", "state"})
	if err != nil {
		return nil, err
	}
	workers := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		workers = append(workers, map[string]any{
			"name":  row["name"],
			"id":    row["id"],
			"state": vmStates.Name(row["state"]),
		})
	}
	return action.Result{"success": true, "workers": workers}, nil
}

func decodeCreatedWorker(args action.Args, res *shell.Result) (action.Result, error) {
	obj, err := normalize.DecodeObject(res.Stdout)
	if err != nil {
		return nil, err
	}
	return action.Result{
		"success": true,
		"id":      guid(obj, "Id"),
		"name":    args.String("worker_name"),
	}, nil
}

func decodeWorkerDetail(_ action.Args, res *shell.Result) (action.Result, error) {
	obj, err := normalize.DecodeObject(res.Stdout)
	if err != nil {
		return nil, err
	}
	return action.Result{
		"success": true,
		"worker": map[string]any{
			"name":       normalize.Str(obj, "Name", "unknown"),
			"id":         guid(obj, "Id"),
			"state":      vmStates.Name(obj["State"]),
			"memory_mb":  normalize.Num(obj, "MemoryMB", 0),
			"cpu_count":  normalize.Num(obj, "CPUCount", 0),
			"generation": normalize.Num(obj, "Generation", 0),
		},
	}, nil
}

func decodeVolumeList(_ action.Args, res *shell.Result) (action.Result, error) {
	objs, err := normalize.DecodeObjects(res.Stdout)
	if err != nil {
		return nil, err
	}
	volumes := make([]map[string]any, 0, len(objs))
	for _, obj := range objs {
		path := normalize.Str(obj, "Path", "unknown")
		volumes = append(volumes, map[string]any{
			"id":      path,
			"path":    path,
			"size_mb": normalize.Num(obj, "Size", 0) / (1024 * 1024),
			"format":  vhdTypes.Name(obj["VhdType"]),
		})
	}
	return action.Result{"success": true, "volumes": volumes}, nil
}

// decodeExistsCount turns a match count into an existence flag.
func decodeExistsCount(_ action.Args, res *shell.Result) (action.Result, error) {
	n, err := normalize.Count(res.Stdout)
	if err != nil {
		return nil, err
	}
	return action.Result{"success": true, "exists": n > 0}, nil
}

// decodeExistsBool handles the boolean-literal variant of the check.
func decodeExistsBool(_ action.Args, res *shell.Result) (action.Result, error) {
	exists, err := normalize.Truthy(res.Stdout)
	if err != nil {
		return nil, err
	}
	return action.Result{"success": true, "exists": exists}, nil
}

// decodeVolumePath reads back the path of a freshly written disk. The
// write already succeeded when this runs, so an unparseable re-read
// falls back to a synthetic result built from the request.
func decodeVolumePath(pathParam string) func(action.Args, *shell.Result) (action.Result, error) {
	return func(args action.Args, res *shell.Result) (action.Result, error) {
		requested := args.String(pathParam)
		obj, err := normalize.DecodeObject(res.Stdout)
		if err != nil {
			return action.Result{"success": true, "id": requested, "path": requested}, nil
		}
		path := normalize.Str(obj, "Path", requested)
		return action.Result{"success": true, "id": path, "path": path}, nil
	}
}

// decodeSnapshotID reads back a checkpoint id, falling back to a
// deterministic composite when the re-read is unparseable.
func decodeSnapshotID(args action.Args, res *shell.Result) (action.Result, error) {
	obj, err := normalize.DecodeObject(res.Stdout)
	if err != nil {
		return action.Result{
			"success": true,
			"id":      args.String("worker_name") + "-" + args.String("snapshot_name"),
		}, nil
	}
	return action.Result{"success": true, "id": guid(obj, "Id")}, nil
}
