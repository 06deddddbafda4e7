package llm

import "testing"

func TestExtractFiles_FenceInfoPath(t *testing.T) {
	text := "Here is your site:\n" +
		"```html index.html\n" +
		"<html><body>hi</body></html>\n" +
		"```\n"
	files := ExtractFiles(text)
	if len(files) != 1 {
		t.Fatalf("got %d files, want 1", len(files))
	}
	if files[0].Path != "index.html" {
		t.Fatalf("path = %q, want index.html", files[0].Path)
	}
	if files[0].Content != "<html><body>hi</body></html>" {
		t.Fatalf("unexpected content %q", files[0].Content)
	}
}

func TestExtractFiles_LabelBeforeFence(t *testing.T) {
	text := "**styles.css**\n" +
		"```css\n" +
		"body { margin: 0; }\n" +
		"```\n" +
		"File: app.js\n" +
		"```js\n" +
		"console.log(1)\n" +
		"```\n"
	files := ExtractFiles(text)
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
	if files[0].Path != "styles.css" || files[1].Path != "app.js" {
		t.Fatalf("paths = %q, %q", files[0].Path, files[1].Path)
	}
}

func TestExtractFiles_NoPathBlocksSkipped(t *testing.T) {
	text := "Some explanation.\n" +
		"```\n" +
		"plain snippet without a name\n" +
		"```\n"
	if files := ExtractFiles(text); len(files) != 0 {
		t.Fatalf("got %d files, want 0", len(files))
	}
}

func TestExtractFiles_ZeroFilesOnProse(t *testing.T) {
	if files := ExtractFiles("I could not generate anything useful."); len(files) != 0 {
		t.Fatalf("got %d files, want 0", len(files))
	}
}

func TestExtractFiles_RejectsTraversal(t *testing.T) {
	text := "../../etc/passwd\n" +
		"```\n" +
		"x\n" +
		"```\n"
	if files := ExtractFiles(text); len(files) != 0 {
		t.Fatalf("traversal path accepted: %+v", files)
	}
}

func TestExtractFiles_NestedDirectories(t *testing.T) {
	text := "src/components/App.jsx\n" +
		"```jsx\n" +
		"export default function App() { return null }\n" +
		"```\n"
	files := ExtractFiles(text)
	if len(files) != 1 || files[0].Path != "src/components/App.jsx" {
		t.Fatalf("got %+v", files)
	}
}
