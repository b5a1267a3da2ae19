package project

// TemplateVanilla is the non-bundled HTML/CSS/JS template. Its preview is
// driven by the incremental sync engine rather than an external bundler.
const TemplateVanilla = "vanilla"

// Scaffold returns the starter file set for a template. Unknown templates
// scaffold as vanilla.
func Scaffold(template string) []File {
	switch template {
	case TemplateVanilla:
		return vanillaFiles()
	default:
		return vanillaFiles()
	}
}

func vanillaFiles() []File {
	files := []File{
		{
			Path: "index.html",
			Content: `<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="UTF-8" />
    <title>My Project</title>
  </head>
  <body>
    <h1>Hello, playground!</h1>
    <p id="output"></p>
  </body>
</html>
`,
		},
		{
			Path: "styles.css",
			Content: `body {
  font-family: system-ui, sans-serif;
  margin: 2rem;
}

h1 {
  color: #333;
}
`,
		},
		{
			Path: "script.js",
			Content: `const output = document.getElementById("output");
if (output) {
  output.textContent = "Edited at " + new Date().toLocaleTimeString();
}
console.log("script loaded");
`,
		},
		{
			Path: "package.json",
			Content: `{
  "name": "my-project",
  "version": "1.0.0",
  "private": true
}
`,
		},
	}

	for i := range files {
		files[i].Language = DetectLanguage(files[i].Path, files[i].Content)
	}
	return files
}
