package alias

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func process(t *testing.T, src string) (string, Result) {
	t.Helper()
	a := New(DefaultRules())
	res := a.Process("test.rs", strings.Split(src, "\n"))
	return strings.Join(res.Lines, "\n"), res
}

// assertIdempotent runs the pass on already annotated content and fails if
// anything else gets inserted.
func assertIdempotent(t *testing.T, annotated string) {
	t.Helper()
	again, res := process(t, annotated)
	if res.Added != 0 {
		t.Errorf("second pass added %d lines:\n%s", res.Added, again)
	}
}

func TestProcess_Newtype(t *testing.T) {
	src := "pub struct Quark(ffi::GQuark);\n"
	want := "#[doc(alias = \"GQuark\")]\npub struct Quark(ffi::GQuark);\n"

	got, res := process(t, src)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("content mismatch (-want +got):\n%s", diff)
	}
	if res.Added != 1 {
		t.Errorf("Added = %d, want 1", res.Added)
	}
	wantIns := []Insertion{{Symbol: "GQuark", Line: 1, Target: "Quark"}}
	if diff := cmp.Diff(wantIns, res.Insertions); diff != "" {
		t.Errorf("insertions mismatch (-want +got):\n%s", diff)
	}
	assertIdempotent(t, got)
}

func TestProcess_EnumVariants(t *testing.T) {
	src := `pub enum Align {
    Fill,
    Start,
    #[doc(hidden)]
    __Unknown(i32),
}

impl IntoGlib for Align {
    type GlibType = ffi::GtkAlign;

    fn into_glib(self) -> ffi::GtkAlign {
        match self {
            Self::Fill => ffi::GTK_ALIGN_FILL,
            Self::Start => ffi::GTK_ALIGN_START,
            Self::__Unknown(value) => value,
        }
    }
}

impl FromGlib<ffi::GtkAlign> for Align {
    unsafe fn from_glib(value: ffi::GtkAlign) -> Self {
        match value {
            ffi::GTK_ALIGN_FILL => Self::Fill,
            ffi::GTK_ALIGN_START => Self::Start,
            value => Self::__Unknown(value),
        }
    }
}`
	wantHead := `#[doc(alias = "GtkAlign")]
pub enum Align {
    #[doc(alias = "GTK_ALIGN_FILL")]
    Fill,
    #[doc(alias = "GTK_ALIGN_START")]
    Start,
    #[doc(hidden)]
    __Unknown(i32),
}
`
	got, res := process(t, src)
	if !strings.HasPrefix(got, wantHead) {
		t.Errorf("unexpected enum declaration:\n%s", got)
	}
	if res.Added != 3 {
		t.Errorf("Added = %d, want 3", res.Added)
	}
	wantIns := []Insertion{
		{Symbol: "GTK_ALIGN_FILL", Line: 3, Target: "Align::Fill"},
		{Symbol: "GTK_ALIGN_START", Line: 5, Target: "Align::Start"},
		{Symbol: "GtkAlign", Line: 1, Target: "Align"},
	}
	if diff := cmp.Diff(wantIns, res.Insertions); diff != "" {
		t.Errorf("insertions mismatch (-want +got):\n%s", diff)
	}
	assertIdempotent(t, got)
}

func TestProcess_ForeignFirstArm(t *testing.T) {
	src := `pub enum Atom {
    None,
    Some,
}

impl FromGlib<i32> for Atom {
    fn convert(value: i32) -> Self {
        match value {
            ffi::gdk_none => Self::None,
            _ => Self::Some,
        }
    }
}`
	got, res := process(t, src)
	want := `pub enum Atom {
    #[doc(alias = "gdk_none")]
    None,`
	if !strings.HasPrefix(got, want) {
		t.Errorf("alias not inserted above the variant:\n%s", got)
	}
	if res.Added != 1 {
		t.Errorf("Added = %d, want 1", res.Added)
	}
	assertIdempotent(t, got)
}

func TestProcess_NestedImplScope(t *testing.T) {
	src := `mod inner {
    pub enum Align {
        Fill,
        Start,
    }

    impl IntoGlib for Align {
        fn into_glib(self) -> i32 {
            match self {
                Self::Fill => ffi::GTK_ALIGN_FILL,
                _ => 0,
            }
        }

        fn start(self) -> i32 {
            match self {
                Self::Start => ffi::GTK_ALIGN_START,
                _ => 0,
            }
        }
    }

    impl Other {
        pub fn other(x: i32) -> i32 {
            match x {
                Self::Fill => ffi::GTK_OTHER,
            }
        }
    }
}`
	got, res := process(t, src)
	wantIns := []Insertion{
		{Symbol: "GTK_ALIGN_FILL", Line: 3, Target: "Align::Fill"},
		{Symbol: "GTK_ALIGN_START", Line: 5, Target: "Align::Start"},
	}
	if diff := cmp.Diff(wantIns, res.Insertions); diff != "" {
		t.Errorf("insertions mismatch (-want +got):\n%s\n%s", diff, got)
	}
	if strings.Contains(got, "GTK_OTHER\")]") {
		t.Errorf("enum context leaked out of its impl block:\n%s", got)
	}
	assertIdempotent(t, got)
}

func TestProcess_UnknownVariant(t *testing.T) {
	src := `pub enum Atom {
    None,
}

impl IntoGlib for Atom {
    fn into_glib(self) -> i32 {
        match self {
            Self::Missing => ffi::GDK_MISSING,
        }
    }
}`
	_, res := process(t, src)
	if res.Added != 0 {
		t.Errorf("Added = %d, want 0", res.Added)
	}
	if res.Errors != 0 {
		t.Errorf("Errors = %d, want 0", res.Errors)
	}
	if len(res.Diagnostics) != 1 || !strings.Contains(res.Diagnostics[0].Message, "Cannot find `Missing` in enum `Atom`") {
		t.Errorf("Diagnostics = %+v", res.Diagnostics)
	}
}

func TestProcess_ExtensionTrait(t *testing.T) {
	src := `pub trait WidgetExt: 'static {
    fn show(&self);

    fn hide(&self);
}

impl<O: IsA<Widget>> WidgetExt for O {
    fn show(&self) {
        unsafe {
            ffi::gtk_widget_show(self.as_ref().to_glib_none().0);
        }
    }

    fn hide(&self) {
        unsafe {
            ffi::gtk_widget_hide(self.as_ref().to_glib_none().0);
        }
    }

    fn missing(&self) {
        unsafe { ffi::gtk_widget_missing(self.as_ref().to_glib_none().0) }
    }
}`
	want := `pub trait WidgetExt: 'static {
    #[doc(alias = "gtk_widget_show")]
    fn show(&self);

    #[doc(alias = "gtk_widget_hide")]
    fn hide(&self);
}

impl<O: IsA<Widget>> WidgetExt for O {
    fn show(&self) {
        unsafe {
            ffi::gtk_widget_show(self.as_ref().to_glib_none().0);
        }
    }

    fn hide(&self) {
        unsafe {
            ffi::gtk_widget_hide(self.as_ref().to_glib_none().0);
        }
    }

    #[doc(alias = "gtk_widget_missing")]
    fn missing(&self) {
        unsafe { ffi::gtk_widget_missing(self.as_ref().to_glib_none().0) }
    }
}`
	got, res := process(t, src)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("content mismatch (-want +got):\n%s", diff)
	}
	if len(res.Diagnostics) != 1 || !strings.Contains(res.Diagnostics[0].Message, "Cannot find `missing` in trait `WidgetExt`") {
		t.Errorf("Diagnostics = %+v", res.Diagnostics)
	}
	assertIdempotent(t, got)
}

func TestProcess_InitRename(t *testing.T) {
	src := `pub fn init() -> Result<(), glib::BoolError> {
    if unsafe { from_glib(ffi::gtk_is_initialized()) } {
        return Ok(());
    }
    unsafe {
        if from_glib(ffi::gtk_init_check(ptr::null_mut(), ptr::null_mut())) {
            Ok(())
        } else {
            Err(glib::bool_error!("Failed to initialize GTK"))
        }
    }
}`
	got, res := process(t, src)
	want := "#[doc(alias = \"gtk_init\")]\npub fn init()"
	if !strings.HasPrefix(got, want) {
		t.Errorf("expected gtk_init alias on init:\n%s", got)
	}
	if strings.Contains(got, `alias = "gtk_is_initialized"`) {
		t.Errorf("gtk_is_initialized must not be aliased on init:\n%s", got)
	}
	if res.Added != 1 {
		t.Errorf("Added = %d, want 1", res.Added)
	}
}

func TestProcess_MultipleAliasesKeepOrder(t *testing.T) {
	src := `impl Surface {
    pub fn flush(&self) {
        unsafe {
            ffi::cairo_surface_flush(self.0);
            ffi::cairo_surface_flush_all(self.0);
        }
    }
}`
	want := `impl Surface {
    #[doc(alias = "cairo_surface_flush")]
    #[doc(alias = "cairo_surface_flush_all")]
    pub fn flush(&self) {`
	got, _ := process(t, src)
	if !strings.HasPrefix(got, want) {
		t.Errorf("unexpected output:\n%s", got)
	}
	assertIdempotent(t, got)
}

func TestProcess_Uncorrelated(t *testing.T) {
	src := `impl Surface {
    pub fn finish(&self) {
        unsafe { ffi::cairo_surface_flush(self.0); }
        let _ = ffi::cairo_surface_status(self.0);
    }
}`
	got, res := process(t, src)
	if res.Added != 0 {
		t.Errorf("Added = %d, want 0:\n%s", res.Added, got)
	}
}

func TestProcess_IgnoredSymbols(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unref suffix", "fn unref(&self) {\n    ffi::g_object_unref(self.0);\n}"},
		{"status suffix", "fn status(&self) {\n    ffi::cairo_surface_status(self.0);\n}"},
		{"ignored function name", "fn drop(&mut self) {\n    ffi::drop_thing(self.0);\n}"},
		{"conversion prefix", "fn to_glib_none(&self) {\n    ffi::to_glib_none_thing(self.0);\n}"},
		{"named exception", "fn free_history(&self) {\n    ffi::gdk_device_free_history(self.0);\n}"},
		{"not an identifier", "fn flags(&self) {\n    let x = ffi::GTK_FLAGS;\n}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, res := process(t, tt.src)
			if res.Added != 0 {
				t.Errorf("Added = %d, want 0:\n%s", res.Added, got)
			}
		})
	}
}

func TestProcess_Bitfield(t *testing.T) {
	src := `bitflags! {
    #[doc(alias = "GtkStateFlags")]
    pub struct StateFlags: u32 {
        #[doc(alias = "GTK_STATE_FLAG_NORMAL")]
        const NORMAL = ffi::GTK_STATE_FLAG_NORMAL as _;
        const ACTIVE = ffi::GTK_STATE_FLAG_ACTIVE as _;
    }
}

impl StateFlags {
    const fn helper() -> u32 {
        const LOCAL = ffi::NOT_A_FLAG;
        0
    }
}`
	want := `bitflags! {
    #[doc(alias = "GtkStateFlags")]
    pub struct StateFlags: u32 {
        #[doc(alias = "GTK_STATE_FLAG_NORMAL")]
        const NORMAL = ffi::GTK_STATE_FLAG_NORMAL as _;
        #[doc(alias = "GTK_STATE_FLAG_ACTIVE")]
        const ACTIVE = ffi::GTK_STATE_FLAG_ACTIVE as _;
    }
}
`
	got, res := process(t, src)
	if !strings.HasPrefix(got, want) {
		t.Errorf("unexpected output:\n%s", got)
	}
	if res.Added != 1 {
		t.Errorf("Added = %d, want 1", res.Added)
	}
	assertIdempotent(t, got)
}

func TestProcess_FromForeignStruct(t *testing.T) {
	src := `pub struct PdfMetadata {
    pub title: String,
}

impl From<PdfMetadata> for ffi::cairo_pdf_metadata_t {
    fn from(val: PdfMetadata) -> ffi::cairo_pdf_metadata_t {
        todo!()
    }
}`
	got, res := process(t, src)
	want := "#[doc(alias = \"cairo_pdf_metadata_t\")]\npub struct PdfMetadata {\n"
	if !strings.HasPrefix(got, want) {
		t.Errorf("unexpected output:\n%s", got)
	}
	if res.Added != 1 {
		t.Errorf("Added = %d, want 1", res.Added)
	}
	assertIdempotent(t, got)
}

func TestProcess_PubConst(t *testing.T) {
	src := `impl Atom {
    pub const NONE: Self = Self(
        ffi::GDK_NONE,
    );
    pub const fn none() -> Self {
        Self::NONE
    }
}`
	want := `impl Atom {
    #[doc(alias = "GDK_NONE")]
    pub const NONE: Self = Self(`
	got, res := process(t, src)
	if !strings.HasPrefix(got, want) {
		t.Errorf("unexpected output:\n%s", got)
	}
	if res.Added != 1 {
		t.Errorf("Added = %d, want 1", res.Added)
	}
}

func TestProcess_IgnoreDirective(t *testing.T) {
	src := `// checker-ignore-item
pub struct Quark(ffi::GQuark);
pub struct Other(ffi::GOther);`
	want := `// checker-ignore-item
pub struct Quark(ffi::GQuark);
#[doc(alias = "GOther")]
pub struct Other(ffi::GOther);`
	got, res := process(t, src)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("content mismatch (-want +got):\n%s", diff)
	}
	if res.Errors != 0 {
		t.Errorf("Errors = %d, want 0", res.Errors)
	}
}

func TestProcess_IgnoreDirectiveCoversWholeFunction(t *testing.T) {
	src := `impl Surface {
    // checker-ignore-item
    pub fn flush(&self) {
        ffi::cairo_surface_flush(self.0);
    }

    pub fn finish(&self) {
        ffi::cairo_surface_finish(self.0);
    }
}`
	got, res := process(t, src)
	if strings.Contains(got, `alias = "cairo_surface_flush"`) {
		t.Errorf("ignored function was annotated:\n%s", got)
	}
	if !strings.Contains(got, `alias = "cairo_surface_finish"`) {
		t.Errorf("next function was not annotated:\n%s", got)
	}
	if res.Added != 1 {
		t.Errorf("Added = %d, want 1", res.Added)
	}
}

func TestProcess_UnknownDirective(t *testing.T) {
	src := `// checker-frobnicate
pub struct Quark(ffi::GQuark);`
	got, res := process(t, src)
	if res.Errors != 1 {
		t.Errorf("Errors = %d, want 1", res.Errors)
	}
	if !res.Stopped {
		t.Error("expected the pass to stop")
	}
	if res.Added != 0 {
		t.Errorf("Added = %d, want 0:\n%s", res.Added, got)
	}
	if len(res.Diagnostics) != 1 || !res.Diagnostics[0].Error {
		t.Fatalf("Diagnostics = %+v", res.Diagnostics)
	}
	if want := "[test.rs:1] Found unknown `checker` command: `checker-frobnicate`"; res.Diagnostics[0].Message != want {
		t.Errorf("message = %q, want %q", res.Diagnostics[0].Message, want)
	}
}

func TestProcess_TraitMethodDeclarationsSkipped(t *testing.T) {
	src := `pub trait Callback {
    fn call(
        &self,
        value: ffi::gpointer,
    );

    fn run(&self) {
        ffi::run_callback();
    }
}`
	got, res := process(t, src)
	want := `pub trait Callback {
    fn call(
        &self,
        value: ffi::gpointer,
    );

    #[doc(alias = "run_callback")]
    fn run(&self) {`
	if !strings.HasPrefix(got, want) {
		t.Errorf("unexpected output:\n%s", got)
	}
	if res.Added != 1 {
		t.Errorf("Added = %d, want 1", res.Added)
	}
}

func TestProcess_PreservesIndentation(t *testing.T) {
	src := "mod inner {\n\timpl Foo {\n\t\tpub fn foo(&self) {\n\t\t\tffi::lib_foo();\n\t\t}\n\t}\n}"
	got, _ := process(t, src)
	if !strings.Contains(got, "\n\t\t#[doc(alias = \"lib_foo\")]\n\t\tpub fn foo") {
		t.Errorf("indentation not reproduced:\n%q", got)
	}
}

func TestNeedsAlias(t *testing.T) {
	alias := Format("gtk_foo")
	tests := []struct {
		name  string
		lines []string
		want  bool
	}{
		{"first line", []string{"fn foo() {"}, true},
		{"present", []string{alias, "fn foo() {"}, false},
		{"present behind comments", []string{"    " + alias, "    /// Docs.", "    #[must_use]", "    fn foo() {"}, false},
		{"separated by code", []string{alias, "let x = 1;", "fn foo() {"}, true},
		{"different alias", []string{Format("gtk_bar"), "fn foo() {"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsAlias(tt.lines, len(tt.lines)-1, alias); got != tt.want {
				t.Errorf("NeedsAlias() = %v, want %v", got, tt.want)
			}
		})
	}
}
