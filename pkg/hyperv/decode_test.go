package hyperv

import (
	"testing"

	"github.com/ormasoftchile/hvcpi/pkg/action"
	"github.com/ormasoftchile/hvcpi/pkg/shell"
)

func out(stdout string) *shell.Result {
	return &shell.Result{Stdout: stdout, ExitCode: 0}
}

func TestDecodeWorkerList(t *testing.T) {
	res := out("\"Name\",\"Id\",\"State\"\n\"vm1\",\"GUID-1\",\"2\"\n")
	got, err := decodeWorkerList(nil, res)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	workers := got["workers"].([]map[string]any)
	if len(workers) != 1 {
		t.Fatalf("workers = %v, want 1 element", workers)
	}
	w := workers[0]
	if w["name"] != "vm1" || w["id"] != "GUID-1" || w["state"] != "Running" {
		t.Errorf("worker = %v, want {vm1 GUID-1 Running}", w)
	}
}

func TestDecodeWorkerListEmpty(t *testing.T) {
	got, err := decodeWorkerList(nil, out("\"Name\",\"Id\",\"State\"\n"))
	if err != nil {
		t.Fatalf("header-only output must not fail: %v", err)
	}
	if len(got["workers"].([]map[string]any)) != 0 {
		t.Errorf("workers = %v, want empty collection", got["workers"])
	}
}

func TestDecodeWorkerListUnknownState(t *testing.T) {
	res := out("\"Name\",\"Id\",\"State\"\n\"vm1\",\"GUID-1\",\"99\"\n")
	got, err := decodeWorkerList(nil, res)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["workers"].([]map[string]any)[0]["state"] != "Unknown" {
		t.Errorf("state 99 must normalize to Unknown, got %v", got["workers"])
	}
}

func TestDecodeWorkerDetail(t *testing.T) {
	res := out(`{"Name":"vm1","Id":"GUID-1","State":2,"MemoryMB":2048,"CPUCount":4,"Generation":2}`)
	got, err := decodeWorkerDetail(nil, res)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w := got["worker"].(map[string]any)
	if w["state"] != "Running" || w["memory_mb"] != int64(2048) || w["cpu_count"] != int64(4) {
		t.Errorf("worker = %v", w)
	}
}

func TestDecodeWorkerDetailNestedGuid(t *testing.T) {
	res := out(`{"Name":"vm1","Id":{"Guid":"abc-123"},"State":3}`)
	got, err := decodeWorkerDetail(nil, res)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w := got["worker"].(map[string]any)
	if w["id"] != "abc-123" {
		t.Errorf("id = %v, want unwrapped guid", w["id"])
	}
	if w["state"] != "Stopped" {
		t.Errorf("state = %v, want Stopped", w["state"])
	}
	// Absent numeric fields decode to their typed defaults, not errors.
	if w["memory_mb"] != int64(0) {
		t.Errorf("memory_mb = %v, want 0", w["memory_mb"])
	}
}

func TestDecodeVolumeListSingleAndArray(t *testing.T) {
	single := out(`{"Path":"a.vhdx","VhdType":2,"Size":1073741824}`)
	array := out(`[{"Path":"a.vhdx","VhdType":2,"Size":1073741824}]`)

	fromSingle, err := decodeVolumeList(nil, single)
	if err != nil {
		t.Fatalf("single: %v", err)
	}
	fromArray, err := decodeVolumeList(nil, array)
	if err != nil {
		t.Fatalf("array: %v", err)
	}

	vs := fromSingle["volumes"].([]map[string]any)
	va := fromArray["volumes"].([]map[string]any)
	if len(vs) != 1 || len(va) != 1 {
		t.Fatalf("both shapes must yield one volume: %v / %v", vs, va)
	}
	for _, v := range []map[string]any{vs[0], va[0]} {
		if v["path"] != "a.vhdx" || v["size_mb"] != int64(1024) || v["format"] != "DynamicExpanding" {
			t.Errorf("volume = %v", v)
		}
	}
}

func TestDecodeVolumeListUnknownType(t *testing.T) {
	got, err := decodeVolumeList(nil, out(`{"Path":"a.vhdx","VhdType":9,"Size":0}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["volumes"].([]map[string]any)[0]["format"] != "Unknown" {
		t.Errorf("vhd type 9 must normalize to Unknown")
	}
}

func TestDecodeInstallProbe(t *testing.T) {
	got, err := decodeInstallProbe(nil, out(`{"Major":5,"Minor":1}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["version"] != "5.1" {
		t.Errorf("version = %v, want 5.1", got["version"])
	}

	if _, err := decodeInstallProbe(nil, out(`{"Minor":1}`)); err == nil {
		t.Error("missing major version must fail the probe")
	}
}

func TestDecodeVolumePathFallback(t *testing.T) {
	parse := decodeVolumePath("disk_path")
	args := action.Args{"disk_path": "d:/disks/new.vhdx"}

	got, err := parse(args, out("unparseable trailing noise"))
	if err != nil {
		t.Fatalf("fallback must not error: %v", err)
	}
	if got["path"] != "d:/disks/new.vhdx" || got["success"] != true {
		t.Errorf("fallback result = %v", got)
	}

	got, err = parse(args, out(`{"Path":"D:\\disks\\new.vhdx"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["path"] != `D:\disks\new.vhdx` {
		t.Errorf("path = %v, want tool-reported path", got["path"])
	}
}

func TestDecodeSnapshotIDFallback(t *testing.T) {
	args := action.Args{"worker_name": "vm1", "snapshot_name": "before-upgrade"}

	got, err := decodeSnapshotID(args, out("no json here"))
	if err != nil {
		t.Fatalf("fallback must not error: %v", err)
	}
	if got["id"] != "vm1-before-upgrade" {
		t.Errorf("fallback id = %v", got["id"])
	}

	got, err = decodeSnapshotID(args, out(`{"Id":{"Guid":"snap-guid"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["id"] != "snap-guid" {
		t.Errorf("id = %v, want snap-guid", got["id"])
	}
}
