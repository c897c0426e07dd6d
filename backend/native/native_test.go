package native

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/jaquobia/rine"
	"github.com/jaquobia/rine/overlay"
)

// openNoop opens a device on the noop backend.
func openNoop(t *testing.T) (*Instance, *Device, *Queue) {
	t.Helper()
	inst, err := NewInstance(noop.API{}, gputypes.BackendVulkan)
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	a, err := inst.RequestAdapter(context.Background(), rine.AdapterOptions{})
	if err != nil {
		inst.Destroy()
		t.Fatalf("RequestAdapter: %v", err)
	}
	dev, q, err := a.RequestDevice(context.Background(), rine.DeviceDescriptor{Label: "test device"})
	if err != nil {
		inst.Destroy()
		t.Fatalf("RequestDevice: %v", err)
	}
	t.Cleanup(func() {
		dev.Destroy()
		inst.Destroy()
	})
	return inst, dev.(*Device), q.(*Queue)
}

func TestInstanceAdapters(t *testing.T) {
	inst, _, _ := openNoop(t)
	adapters := inst.Adapters()
	if len(adapters) == 0 {
		t.Fatal("noop backend exposes no adapters")
	}
	if got := adapters[0].Info().Backend; got != gputypes.BackendVulkan {
		t.Errorf("Backend = %v, want %v", got, gputypes.BackendVulkan)
	}
	if adapters[0].Limits().MaxTextureDimension2D == 0 {
		t.Error("Limits reports a zero MaxTextureDimension2D")
	}

	_, err := inst.RequestAdapter(context.Background(), rine.AdapterOptions{Name: "no-such-gpu-7f3a"})
	if !errors.Is(err, ErrNoAdapter) {
		t.Errorf("RequestAdapter(unknown name) error = %v, want ErrNoAdapter", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := inst.RequestAdapter(ctx, rine.AdapterOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("RequestAdapter(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestSelectAdapter(t *testing.T) {
	mk := func(name string, typ gputypes.DeviceType) *Adapter {
		return &Adapter{exposed: hal.ExposedAdapter{Info: gputypes.AdapterInfo{Name: name, DeviceType: typ}}}
	}
	cpu := mk("llvmpipe", gputypes.DeviceTypeCPU)
	igpu := mk("Intel UHD 630", gputypes.DeviceTypeIntegratedGPU)
	dgpu := mk("NVIDIA RTX 4070", gputypes.DeviceTypeDiscreteGPU)
	all := []*Adapter{cpu, igpu, dgpu}

	tests := []struct {
		name     string
		adapters []*Adapter
		opts     rine.AdapterOptions
		want     *Adapter
	}{
		{"no preference takes first hardware", all, rine.AdapterOptions{}, igpu},
		{"high performance", all, rine.AdapterOptions{PowerPreference: rine.PowerPreferenceHighPerformance}, dgpu},
		{"low power", all, rine.AdapterOptions{PowerPreference: rine.PowerPreferenceLowPower}, igpu},
		{"name filter", all, rine.AdapterOptions{Name: "nvidia"}, dgpu},
		{"name filter beats preference", all, rine.AdapterOptions{Name: "llvm", PowerPreference: rine.PowerPreferenceHighPerformance}, cpu},
		{"software only", []*Adapter{cpu}, rine.AdapterOptions{}, cpu},
		{"no match", all, rine.AdapterOptions{Name: "radeon"}, nil},
		{"empty", nil, rine.AdapterOptions{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := selectAdapter(tt.adapters, tt.opts); got != tt.want {
				t.Errorf("selectAdapter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    gputypes.Backend
		wantErr bool
	}{
		{"", gputypes.BackendVulkan, false},
		{"Vulkan", gputypes.BackendVulkan, false},
		{"metal", gputypes.BackendMetal, false},
		{" d3d12 ", gputypes.BackendDX12, false},
		{"gles", gputypes.BackendGL, false},
		{in: "software", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBackend(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseBackend(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEncoderLifecycle(t *testing.T) {
	_, dev, q := openNoop(t)
	target, err := dev.CreateRenderTarget("target", 64, 32, gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatalf("CreateRenderTarget: %v", err)
	}
	defer target.Destroy()

	enc, err := dev.CreateCommandEncoder("frame")
	if err != nil {
		t.Fatalf("CreateCommandEncoder: %v", err)
	}
	desc := &rine.RenderPassDescriptor{
		Label: "clear",
		ColorAttachments: []rine.ColorAttachment{{
			View:       target.View(),
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 1, A: 1},
		}},
	}
	pass, err := enc.BeginRenderPass(desc)
	if err != nil {
		t.Fatalf("BeginRenderPass: %v", err)
	}
	if got := pass.(*RenderPass).Target(); got != target.View() {
		t.Error("pass target is not the attachment view")
	}
	if _, err := enc.BeginRenderPass(desc); !errors.Is(err, ErrPassOpen) {
		t.Errorf("second BeginRenderPass error = %v, want ErrPassOpen", err)
	}
	if _, err := enc.Finish(); !errors.Is(err, ErrPassOpen) {
		t.Errorf("Finish with open pass error = %v, want ErrPassOpen", err)
	}
	if err := pass.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := pass.End(); err == nil {
		t.Error("second End succeeded")
	}

	cb, err := enc.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if _, err := enc.Finish(); !errors.Is(err, ErrEncoderFinished) {
		t.Errorf("second Finish error = %v, want ErrEncoderFinished", err)
	}
	if _, err := enc.BeginRenderPass(desc); !errors.Is(err, ErrEncoderFinished) {
		t.Errorf("BeginRenderPass after Finish error = %v, want ErrEncoderFinished", err)
	}
	enc.Discard()

	if err := q.Submit([]rine.CommandBuffer{cb}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := q.Submit([]rine.CommandBuffer{cb}); err == nil {
		t.Error("resubmitting a command buffer succeeded")
	}
	if len(q.pending) != 0 {
		t.Errorf("pending = %d after synchronous submit, want 0", len(q.pending))
	}
	dev.Poll(true)
}

func TestForeignObjects(t *testing.T) {
	_, dev, q := openNoop(t)
	enc, err := dev.CreateCommandEncoder("foreign")
	if err != nil {
		t.Fatalf("CreateCommandEncoder: %v", err)
	}
	defer enc.Discard()

	_, err = enc.BeginRenderPass(&rine.RenderPassDescriptor{
		ColorAttachments: []rine.ColorAttachment{{View: "not a view"}},
	})
	if !errors.Is(err, ErrForeignObject) {
		t.Errorf("BeginRenderPass(foreign view) error = %v, want ErrForeignObject", err)
	}
	if err := q.Submit([]rine.CommandBuffer{42}); !errors.Is(err, ErrForeignObject) {
		t.Errorf("Submit(foreign buffer) error = %v, want ErrForeignObject", err)
	}
	other := &CommandBuffer{device: &Device{}, label: "other"}
	if err := q.Submit([]rine.CommandBuffer{other}); !errors.Is(err, ErrForeignObject) {
		t.Errorf("Submit(other device buffer) error = %v, want ErrForeignObject", err)
	}
}

func TestDestroyedDevice(t *testing.T) {
	_, dev, q := openNoop(t)
	dev.Destroy()
	dev.Destroy()
	if !dev.Destroyed() {
		t.Fatal("Destroyed() = false")
	}
	if _, err := dev.CreateCommandEncoder("late"); !errors.Is(err, ErrDeviceDestroyed) {
		t.Errorf("CreateCommandEncoder error = %v, want ErrDeviceDestroyed", err)
	}
	if _, err := dev.CreateRenderTarget("late", 1, 1, gputypes.TextureFormatRGBA8Unorm); !errors.Is(err, ErrDeviceDestroyed) {
		t.Errorf("CreateRenderTarget error = %v, want ErrDeviceDestroyed", err)
	}
	if err := q.Submit(nil); !errors.Is(err, ErrDeviceDestroyed) {
		t.Errorf("Submit error = %v, want ErrDeviceDestroyed", err)
	}
	r := NewOverlayRenderer(dev, gputypes.TextureFormatRGBA8Unorm)
	_, err := r.UpdateBuffers(nil, []overlay.Mesh{quad(overlay.Rect{})}, overlay.ScreenDescriptor{Width: 8, Height: 8, PixelsPerPoint: 1})
	if !errors.Is(err, ErrDeviceDestroyed) {
		t.Errorf("UpdateBuffers error = %v, want ErrDeviceDestroyed", err)
	}
}

func quad(clip overlay.Rect) overlay.Mesh {
	c := [4]float32{1, 0.5, 0, 0.5}
	return overlay.Mesh{
		Clip: clip,
		Vertices: []overlay.Vertex{
			{Pos: [2]float32{0, 0}, Color: c},
			{Pos: [2]float32{4, 0}, Color: c},
			{Pos: [2]float32{4, 4}, Color: c},
			{Pos: [2]float32{0, 4}, Color: c},
		},
		Indices: []uint16{0, 1, 2, 0, 2, 3},
	}
}

func TestOverlayRenderer(t *testing.T) {
	for _, spirv := range []bool{false, true} {
		name := "wgsl"
		var opts []OverlayOption
		if spirv {
			name = "spirv"
			opts = append(opts, WithSPIRV())
		}
		t.Run(name, func(t *testing.T) {
			_, dev, q := openNoop(t)
			target, err := dev.CreateRenderTarget("overlay target", 32, 32, gputypes.TextureFormatBGRA8Unorm)
			if err != nil {
				t.Fatalf("CreateRenderTarget: %v", err)
			}
			defer target.Destroy()

			r := NewOverlayRenderer(dev, gputypes.TextureFormatBGRA8Unorm, opts...)
			defer r.Destroy()

			screen := overlay.ScreenDescriptor{Width: 32, Height: 32, PixelsPerPoint: 2}
			meshes := []overlay.Mesh{
				quad(overlay.Rect{}),
				quad(overlay.Rect{X: 2, Y: 2, W: 4, H: 4}),
				quad(overlay.Rect{X: 100, Y: 100, W: 4, H: 4}),
			}

			enc, err := dev.CreateCommandEncoder("overlay")
			if err != nil {
				t.Fatalf("CreateCommandEncoder: %v", err)
			}
			bufs, err := r.UpdateBuffers(enc, meshes, screen)
			if err != nil {
				t.Fatalf("UpdateBuffers: %v", err)
			}
			if len(bufs) != 0 {
				t.Errorf("UpdateBuffers returned %d buffers, want 0", len(bufs))
			}
			if r.Draws() != 2 {
				t.Errorf("Draws() = %d, want 2 (offscreen mesh skipped)", r.Draws())
			}

			pass, err := enc.BeginRenderPass(&rine.RenderPassDescriptor{
				Label: "overlay",
				ColorAttachments: []rine.ColorAttachment{{
					View: target.View(), LoadOp: gputypes.LoadOpLoad, StoreOp: gputypes.StoreOpStore,
				}},
			})
			if err != nil {
				t.Fatalf("BeginRenderPass: %v", err)
			}
			if err := r.Render(pass, meshes, screen); err != nil {
				t.Fatalf("Render: %v", err)
			}
			if err := pass.End(); err != nil {
				t.Fatalf("End: %v", err)
			}
			cb, err := enc.Finish()
			if err != nil {
				t.Fatalf("Finish: %v", err)
			}
			if err := q.Submit([]rine.CommandBuffer{cb}); err != nil {
				t.Fatalf("Submit: %v", err)
			}

			if _, err := r.UpdateBuffers(nil, nil, screen); err != nil {
				t.Fatalf("UpdateBuffers(empty): %v", err)
			}
			if r.Draws() != 0 {
				t.Errorf("Draws() after empty frame = %d, want 0", r.Draws())
			}
		})
	}
}

func TestOverlayRendererForeignPass(t *testing.T) {
	_, dev, _ := openNoop(t)
	r := NewOverlayRenderer(dev, gputypes.TextureFormatRGBA8Unorm)
	if err := r.Render(struct{ rine.RenderPass }{}, nil, overlay.ScreenDescriptor{}); !errors.Is(err, ErrForeignObject) {
		t.Errorf("Render(foreign pass) error = %v, want ErrForeignObject", err)
	}
}

func TestScissorRect(t *testing.T) {
	screen := overlay.ScreenDescriptor{Width: 100, Height: 50, PixelsPerPoint: 2}
	tests := []struct {
		name   string
		clip   overlay.Rect
		screen overlay.ScreenDescriptor
		want   [4]uint32
		ok     bool
	}{
		{"empty clip is full screen", overlay.Rect{}, screen, [4]uint32{0, 0, 100, 50}, true},
		{"scaled", overlay.Rect{X: 5, Y: 5, W: 10, H: 10}, screen, [4]uint32{10, 10, 20, 20}, true},
		{"rounded outward", overlay.Rect{X: 0.3, Y: 0.3, W: 1, H: 1}, screen, [4]uint32{0, 0, 3, 3}, true},
		{"clamped", overlay.Rect{X: 40, Y: -10, W: 100, H: 30}, screen, [4]uint32{80, 0, 20, 40}, true},
		{"offscreen", overlay.Rect{X: 60, Y: 0, W: 5, H: 5}, screen, [4]uint32{}, false},
		{"zero screen", overlay.Rect{}, overlay.ScreenDescriptor{}, [4]uint32{}, false},
		{"zero ppp means one", overlay.Rect{X: 1, Y: 1, W: 2, H: 2}, overlay.ScreenDescriptor{Width: 10, Height: 10}, [4]uint32{1, 1, 2, 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := scissorRect(tt.clip, tt.screen)
			if ok != tt.ok || got != tt.want {
				t.Errorf("scissorRect() = %v, %v; want %v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestPackMeshes(t *testing.T) {
	screen := overlay.ScreenDescriptor{Width: 16, Height: 16, PixelsPerPoint: 1}
	tri := overlay.Mesh{
		Vertices: []overlay.Vertex{
			{Pos: [2]float32{1, 2}, Color: [4]float32{1, 1, 1, 0.5}},
			{Pos: [2]float32{3, 4}},
			{Pos: [2]float32{5, 6}},
		},
		Indices: []uint16{0, 1, 2},
	}
	verts, idx, draws := packMeshes([]overlay.Mesh{tri, {}, tri}, screen)

	if len(draws) != 2 {
		t.Fatalf("draws = %d, want 2", len(draws))
	}
	if len(verts) != 6*overlayVertexStride {
		t.Errorf("vertex bytes = %d, want %d", len(verts), 6*overlayVertexStride)
	}
	// Three indices pad to four so the next mesh starts aligned.
	if len(idx) != 16 {
		t.Errorf("index bytes = %d, want 16", len(idx))
	}
	if draws[1].vertexOffset != 3*overlayVertexStride || draws[1].indexOffset != 8 {
		t.Errorf("second draw offsets = (%d, %d), want (%d, 8)", draws[1].vertexOffset, draws[1].indexOffset, 3*overlayVertexStride)
	}
	if draws[0].indexCount != 3 {
		t.Errorf("indexCount = %d, want 3", draws[0].indexCount)
	}

	f := func(i int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(verts[i*4:])) }
	want := []float32{1, 2, 0.5, 0.5, 0.5, 0.5}
	for i, w := range want {
		if got := f(i); got != w {
			t.Errorf("vertex float %d = %v, want %v (premultiplied)", i, got, w)
		}
	}
}

func TestCompileShaderSPIRV(t *testing.T) {
	words, err := CompileShaderSPIRV(overlayShaderSource)
	if err != nil {
		t.Fatalf("CompileShaderSPIRV: %v", err)
	}
	if words[0] != spirvMagic {
		t.Errorf("magic = %#x, want %#x", words[0], spirvMagic)
	}
	if _, err := CompileShaderSPIRV("fn broken( {"); err == nil {
		t.Error("compiling invalid WGSL succeeded")
	}
}

// scriptedQueue overrides submission and completion on top of a real hal
// queue.
type scriptedQueue struct {
	hal.Queue
	submitErr error
	writeErr  error
	index     uint64
	done      uint64
}

func (q *scriptedQueue) Submit([]hal.CommandBuffer) (uint64, error) {
	if q.submitErr != nil {
		return 0, q.submitErr
	}
	q.index++
	return q.index, nil
}

func (q *scriptedQueue) PollCompleted() uint64 { return q.done }

func (q *scriptedQueue) WriteBuffer(buf hal.Buffer, offset uint64, data []byte) error {
	if q.writeErr != nil {
		return q.writeErr
	}
	return q.Queue.WriteBuffer(buf, offset, data)
}

func finishedBuffer(t *testing.T, dev *Device, label string) rine.CommandBuffer {
	t.Helper()
	enc, err := dev.CreateCommandEncoder(label)
	if err != nil {
		t.Fatalf("CreateCommandEncoder: %v", err)
	}
	cb, err := enc.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return cb
}

func TestSubmitWaitsForCompletion(t *testing.T) {
	_, dev, q := openNoop(t)
	sq := &scriptedQueue{Queue: q.hal}
	q.hal = sq
	q.SetTimeout(5 * time.Millisecond)

	err := q.Submit([]rine.CommandBuffer{finishedBuffer(t, dev, "slow")})
	if !errors.Is(err, ErrGPUTimeout) {
		t.Fatalf("Submit error = %v, want ErrGPUTimeout", err)
	}
	if len(q.pending) != 1 {
		t.Fatalf("pending = %d after timeout, want 1", len(q.pending))
	}

	dev.Poll(false)
	if len(q.pending) != 1 {
		t.Errorf("pending = %d after non-blocking poll of incomplete work, want 1", len(q.pending))
	}

	sq.done = sq.index
	dev.Poll(true)
	if len(q.pending) != 0 {
		t.Errorf("pending = %d after completion, want 0", len(q.pending))
	}

	if err := q.Submit([]rine.CommandBuffer{finishedBuffer(t, dev, "fast")}); !errors.Is(err, ErrGPUTimeout) {
		t.Errorf("Submit of second buffer error = %v, want ErrGPUTimeout", err)
	}
	if q.last != 2 {
		t.Errorf("last submission = %d, want 2", q.last)
	}
	q.hal = sq.Queue
}

func TestSubmitRejected(t *testing.T) {
	_, dev, q := openNoop(t)
	boom := errors.New("device lost")
	q.hal = &scriptedQueue{Queue: q.hal, submitErr: boom}

	cb := finishedBuffer(t, dev, "rejected")
	if err := q.Submit([]rine.CommandBuffer{cb}); !errors.Is(err, boom) {
		t.Fatalf("Submit error = %v, want %v", err, boom)
	}
	if len(q.pending) != 0 {
		t.Errorf("pending = %d after rejected submit, want 0", len(q.pending))
	}
	if err := q.Submit([]rine.CommandBuffer{cb}); err == nil {
		t.Error("resubmitting a rejected buffer succeeded")
	}
}

func TestOverlayRendererWriteFailure(t *testing.T) {
	_, dev, q := openNoop(t)
	r := NewOverlayRenderer(dev, gputypes.TextureFormatRGBA8Unorm)
	defer r.Destroy()

	boom := errors.New("staging exhausted")
	q.hal = &scriptedQueue{Queue: q.hal, writeErr: boom}

	screen := overlay.ScreenDescriptor{Width: 8, Height: 8, PixelsPerPoint: 1}
	_, err := r.UpdateBuffers(nil, []overlay.Mesh{quad(overlay.Rect{})}, screen)
	if !errors.Is(err, boom) {
		t.Fatalf("UpdateBuffers error = %v, want %v", err, boom)
	}
	if r.Draws() != 0 {
		t.Errorf("Draws() = %d after failed upload, want 0", r.Draws())
	}
}

func TestCommandBufferRelease(t *testing.T) {
	_, dev, q := openNoop(t)
	cb := finishedBuffer(t, dev, "unused")
	cb.(*CommandBuffer).Release()
	cb.(*CommandBuffer).Release()
	if err := q.Submit([]rine.CommandBuffer{cb}); err == nil {
		t.Error("Submit() of a released buffer should fail")
	}
	if len(q.pending) != 0 {
		t.Errorf("pending = %d, want 0", len(q.pending))
	}
}
